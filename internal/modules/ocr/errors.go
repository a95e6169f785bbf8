// README: OCR failure taxonomy and the operator instruction for each code.
package ocr

import "fmt"

type Code string

const (
	CodeDetailsCollapsed        Code = "DETAILS_COLLAPSED"
	CodeNoteCollapsed           Code = "NOTE_COLLAPSED"
	CodeDetailsAndNoteCollapsed Code = "DETAILS_AND_NOTE_COLLAPSED"
	CodeOCRFailed               Code = "OCR_FAILED"
)

// ParseError is the typed result of a screenshot that cannot become an order.
type ParseError struct {
	Code   Code
	Reason string
}

func (e *ParseError) Error() string {
	if e.Reason == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

func failed(reason string) *ParseError {
	return &ParseError{Code: CodeOCRFailed, Reason: reason}
}

// Instruction is the prompt posted to the operator for code.
func Instruction(code Code) string {
	switch code {
	case CodeDetailsCollapsed:
		return "⚠️ Customer details are collapsed. Open the order, tap the arrow next to the customer name to show phone and address, then send the screenshot again."
	case CodeNoteCollapsed:
		return "⚠️ The order note is collapsed. Tap the arrow next to 📝 to show the full note, then send the screenshot again."
	case CodeDetailsAndNoteCollapsed:
		return "⚠️ Customer details and the note are collapsed. Expand both (arrow next to the customer name and next to 📝), then send the screenshot again."
	default:
		return "⚠️ Could not read the screenshot. Make sure the whole order is visible and sharp, then send it again."
	}
}
