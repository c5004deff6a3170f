package terms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// ErrUnavailable reports that the identification collaborator cannot be
// reached at all (binary missing, API key absent, network down).
var ErrUnavailable = errors.New("terms: identification service unavailable")

// ErrMalformed reports that the collaborator answered but its output could
// not be parsed into a term list.
var ErrMalformed = errors.New("terms: identification service returned malformed output")

// Identifier asks an external service which literal strings in the document
// text identify the client and must be redacted.
type Identifier interface {
	Name() string
	Identify(ctx context.Context, documentText string) ([]string, error)
}

// NewIdentifier builds an identifier by provider name.
func NewIdentifier(provider, model string) (Identifier, error) {
	switch provider {
	case "", "claude-cli":
		return &CLIIdentifier{}, nil
	case "anthropic":
		return NewAnthropic(model)
	default:
		return nil, fmt.Errorf("terms: unknown identifier provider %q", provider)
	}
}

// maxPromptChars caps the document text sent for identification; longer
// documents are truncated with a marker, as context windows are finite.
const maxPromptChars = 50000

const promptPreamble = `Analyze this legal document and identify ALL client-identifying information that should be redacted for sharing. Include:

1. Client names - full names, first names, last names, nicknames, aliases
2. Case numbers and docket numbers - any format
3. Addresses - street addresses, identifying cities, zip codes
4. Phone numbers and email addresses
5. Social Security numbers, dates of birth, driver's license numbers
6. Account numbers - bank, financial, medical record numbers
7. Family member names - spouses, children, relatives mentioned
8. Employer names when clearly associated with the client
9. Any other unique identifiers that could identify the client

IMPORTANT:
- Return ONLY a JSON array of strings, one term per array element
- Include variations (e.g., "John Smith", "Smith", "John", "Mr. Smith")
- Be thorough - when in doubt, include it
- Do NOT include generic legal terms, court names, judge names, or attorney names

Document text to analyze:
---
`

const promptClose = "\n---\n\nReturn ONLY the JSON array of terms to redact:"

func buildPrompt(documentText string) string {
	if len(documentText) > maxPromptChars {
		documentText = documentText[:maxPromptChars] + "\n\n[Document truncated for analysis...]"
	}
	return promptPreamble + documentText + promptClose
}

var jsonArrayPattern = regexp.MustCompile(`(?s)\[.*?\]`)

// parseTermArray extracts the first JSON array of strings from a model reply.
// Replies often wrap the array in prose, so the array is located before
// unmarshaling.
func parseTermArray(reply string) ([]string, error) {
	match := jsonArrayPattern.FindString(reply)
	if match == "" {
		return nil, fmt.Errorf("%w: no JSON array in reply", ErrMalformed)
	}
	var out []string
	if err := json.Unmarshal([]byte(match), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return out, nil
}
