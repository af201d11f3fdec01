package checkout

import "errors"

var ErrNoPendingRedirect = errors.New("no pending redirect")

// RedirectGate opens the payment page for the client. When Open refuses
// (popup blocked outside a user gesture) the URL is kept until Click.
type RedirectGate struct {
	Open    func(url string) error
	pending string
}

// Navigate reports whether the page was opened right away.
func (g *RedirectGate) Navigate(url string) bool {
	if err := g.Open(url); err != nil {
		g.pending = url
		return false
	}
	g.pending = ""
	return true
}

func (g *RedirectGate) Pending() string { return g.pending }

// Click is the explicit user gesture that opens a stored URL.
func (g *RedirectGate) Click() error {
	if g.pending == "" {
		return ErrNoPendingRedirect
	}
	if err := g.Open(g.pending); err != nil {
		return err
	}
	g.pending = ""
	return nil
}
