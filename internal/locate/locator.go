// File: internal/locate/locator.go
package locate

import "fmt"

// Strategy identifies how a Locator's query is evaluated against the page.
type Strategy int

const (
	// ByCSS evaluates the query as a CSS selector.
	ByCSS Strategy = iota
	// ByXPath evaluates the query as an XPath expression. Absolute,
	// position-based XPaths are brittle and belong at the end of a chain.
	ByXPath
	// ByText matches the first visible element whose text contains the query.
	ByText
)

// String returns a short tag used in log fields and error messages.
func (s Strategy) String() string {
	switch s {
	case ByCSS:
		return "css"
	case ByXPath:
		return "xpath"
	case ByText:
		return "text"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Locator is a single strategy+query pair identifying one UI element.
type Locator struct {
	Strategy Strategy
	Query    string
}

// CSS builds a CSS-selector locator.
func CSS(query string) Locator { return Locator{Strategy: ByCSS, Query: query} }

// XPath builds an XPath locator.
func XPath(query string) Locator { return Locator{Strategy: ByXPath, Query: query} }

// Text builds a visible-text-contains locator.
func Text(query string) Locator { return Locator{Strategy: ByText, Query: query} }

func (l Locator) String() string {
	return fmt.Sprintf("%s:%s", l.Strategy, l.Query)
}

// Chain is an ordered fallback list of locators for one logical UI target.
// Locators are tried in order; the first that resolves wins. ScanText, when
// non-empty, enables a last-resort brute-force scan over all visible elements
// whose text contains it.
type Chain struct {
	Target   string
	ScanText string
	Locators []Locator
}

// NewChain builds a chain for the named logical target.
func NewChain(target string, locators ...Locator) Chain {
	return Chain{Target: target, Locators: locators}
}

// WithScanText returns a copy of the chain with the brute-force scan enabled.
func (c Chain) WithScanText(text string) Chain {
	c.ScanText = text
	return c
}
