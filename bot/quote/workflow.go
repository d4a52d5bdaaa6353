package quote

// QuoteWorkflow collects the quote fields in entity.FieldOrder.
type QuoteWorkflow struct {
	order []Step
}

func NewQuoteWorkflow() *QuoteWorkflow {
	return &QuoteWorkflow{
		order: []Step{
			&NameStep{},
			&EmailStep{},
			&PhoneStep{},
			&RegionStep{},
			&DescriptionStep{},
		},
	}
}

func (w *QuoteWorkflow) Steps() []Step {
	return w.order
}
