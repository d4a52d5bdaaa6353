package quote

import "fmt"

const (
	msgTooLong  = "⚠️ Tu mensaje es demasiado largo (máximo 500 caracteres). Por favor, resúmelo."
	msgTooShort = "⚠️ Tu respuesta es demasiado corta."
	msgDeclined = "Entendido."
	msgComplete = "✅ ¡Gracias! Ya tenemos todos los datos para tu cotización. Un ejecutivo de ventas revisará tu solicitud y te responderá por este mismo chat."

	promptName        = "¿Cuál es tu nombre completo (nombre y apellido)?"
	promptEmail       = "¿Cuál es tu correo electrónico?"
	promptPhone       = "¿Cuál es tu número de teléfono?"
	promptRegion      = "¿En qué región y comuna se realizaría el proyecto?"
	promptDescription = "Cuéntanos brevemente sobre tu proyecto: consumo mensual, tipo de instalación, plazos u otros detalles."

	invalidName        = "❌ Por favor, ingresa tu nombre y apellido (mínimo 5 caracteres)."
	invalidEmail       = "❌ Ese correo no parece válido. Ingresa un correo con el formato nombre@dominio.cl."
	invalidPhone       = "❌ El teléfono debe tener al menos 8 dígitos (por ejemplo +56 9 1234 5678)."
	invalidRegion      = "❌ Indica la región y comuna (mínimo 5 caracteres), por ejemplo: Valparaíso, Viña del Mar."
	invalidDescription = "❌ Necesitamos un poco más de detalle sobre tu proyecto (mínimo 10 caracteres)."
)

func confirmQuestion(candidate string) string {
	return fmt.Sprintf("¿Es %q correcto? Responde sí o no.", candidate)
}

func welcome(customerName, productName string) string {
	greeting := "¡Hola!"
	if customerName != "" {
		greeting = fmt.Sprintf("¡Hola %s!", customerName)
	}
	return fmt.Sprintf("%s 👋 Gracias por tu interés en %s. Para preparar tu cotización necesitamos algunos datos.", greeting, productName)
}
