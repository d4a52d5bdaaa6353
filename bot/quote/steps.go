package quote

import "QuoteChat/entity"

// NameStep collects the customer's full name.
type NameStep struct{}

func (s *NameStep) Field() entity.Field       { return entity.FieldName }
func (s *NameStep) Prompt() string            { return promptName }
func (s *NameStep) Invalid() string           { return invalidName }
func (s *NameStep) Validate(text string) bool { return IsValidName(text) }

func (s *NameStep) Candidate(profile *entity.Profile) string {
	if profile == nil || !IsValidName(profile.Name) {
		return ""
	}
	return profile.Name
}

// EmailStep collects a contact email.
type EmailStep struct{}

func (s *EmailStep) Field() entity.Field       { return entity.FieldEmail }
func (s *EmailStep) Prompt() string            { return promptEmail }
func (s *EmailStep) Invalid() string           { return invalidEmail }
func (s *EmailStep) Validate(text string) bool { return IsValidEmail(text) }

func (s *EmailStep) Candidate(profile *entity.Profile) string {
	if profile == nil || !IsValidEmail(profile.Email) {
		return ""
	}
	return profile.Email
}

// PhoneStep collects a contact phone.
type PhoneStep struct{}

func (s *PhoneStep) Field() entity.Field       { return entity.FieldPhone }
func (s *PhoneStep) Prompt() string            { return promptPhone }
func (s *PhoneStep) Invalid() string           { return invalidPhone }
func (s *PhoneStep) Validate(text string) bool { return IsValidPhone(text) }

func (s *PhoneStep) Candidate(profile *entity.Profile) string {
	if profile == nil || !IsValidPhone(profile.Phone) {
		return ""
	}
	return profile.Phone
}

// RegionStep collects region and commune. No profile source.
type RegionStep struct{}

func (s *RegionStep) Field() entity.Field                 { return entity.FieldRegion }
func (s *RegionStep) Prompt() string                      { return promptRegion }
func (s *RegionStep) Invalid() string                     { return invalidRegion }
func (s *RegionStep) Validate(text string) bool           { return IsValidRegion(text) }
func (s *RegionStep) Candidate(_ *entity.Profile) string { return "" }

// DescriptionStep collects the free-text project description. No profile source.
type DescriptionStep struct{}

func (s *DescriptionStep) Field() entity.Field                 { return entity.FieldDescription }
func (s *DescriptionStep) Prompt() string                      { return promptDescription }
func (s *DescriptionStep) Invalid() string                     { return invalidDescription }
func (s *DescriptionStep) Validate(text string) bool           { return IsValidDescription(text) }
func (s *DescriptionStep) Candidate(_ *entity.Profile) string { return "" }
