package interaction

import (
	flowerr "github.com/mimoto-id/mimoto/errors"
)

// OutcomeKind discriminates the uniform result of every interaction
// operation. The HTTP layer translates outcomes into status codes, headers
// and templates; the flows themselves never touch the response writer.
type OutcomeKind int

const (
	// OutcomeForm renders a form or informational view with Model attached.
	OutcomeForm OutcomeKind = iota
	// OutcomeDirectRedirect issues a plain 302 to URL.
	OutcomeDirectRedirect
	// OutcomeIndirectRedirect renders a same-origin page that navigates to
	// URL client-side, so the authorization response never appears in a
	// Referer header.
	OutcomeIndirectRedirect
	// OutcomeChallenge hands the browser to the external identity broker for
	// Scheme, with Properties round-tripped into the eventual assertion.
	OutcomeChallenge
	// OutcomeError renders the generic error view with Reason.
	OutcomeError
	// OutcomeSuccess renders a completion view with Model attached (device
	// flow confirmations, logged-out page).
	OutcomeSuccess
)

// Outcome is the tagged result value returned by all orchestrators.
type Outcome struct {
	Kind       OutcomeKind
	URL        string
	Scheme     string
	Properties map[string]string
	Model      any
	Reason     string
}

func FormView(model any) *Outcome {
	return &Outcome{Kind: OutcomeForm, Model: model}
}

func DirectRedirect(url string) *Outcome {
	return &Outcome{Kind: OutcomeDirectRedirect, URL: url}
}

func IndirectRedirect(url string) *Outcome {
	return &Outcome{Kind: OutcomeIndirectRedirect, URL: url}
}

func ExternalChallenge(scheme, returnURL string) *Outcome {
	return &Outcome{
		Kind:   OutcomeChallenge,
		Scheme: scheme,
		Properties: map[string]string{
			"scheme":    scheme,
			"returnUrl": returnURL,
		},
	}
}

func ErrorView(reason string) *Outcome {
	return &Outcome{Kind: OutcomeError, Reason: reason}
}

// ErrorViewOf renders the error view for a taxonomy condition the flow
// handles locally instead of propagating.
func ErrorViewOf(fe *flowerr.FlowError) *Outcome {
	return &Outcome{Kind: OutcomeError, Reason: fe.Description}
}

func SuccessView(model any) *Outcome {
	return &Outcome{Kind: OutcomeSuccess, Model: model}
}
