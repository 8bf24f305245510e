package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/philipparndt/modelforge/internal/account"
	"github.com/philipparndt/modelforge/internal/app"
	"github.com/philipparndt/modelforge/internal/billing"
	"github.com/philipparndt/modelforge/internal/ui"
)

type AccountCmd struct {
	Show    AccountShowCmd    `cmd:"" default:"1" help:"Show your subscription tier"`
	Upgrade AccountUpgradeCmd `cmd:"" help:"Start a premium checkout"`
	Manage  AccountManageCmd  `cmd:"" help:"Open the billing portal"`
}

type AccountShowCmd struct{}

func (c *AccountShowCmd) Run(ctx context.Context, g *Globals) error {
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	u := a.User()
	ui.PrintKeyValue("User", u.ID)
	if u.Email != "" {
		ui.PrintKeyValue("Email", u.Email)
	}
	tier := a.Accounts.Tier(ctx, u.ID)
	ui.PrintKeyValue("Tier", string(tier))
	if tier == account.TierPremium {
		ui.PrintKeyValue("Storage", "cloud")
	} else {
		ui.PrintKeyValue("Storage", "local")
	}
	return nil
}

type AccountUpgradeCmd struct {
	Open bool `help:"Open the checkout page in the browser"`
}

func (c *AccountUpgradeCmd) Run(ctx context.Context, g *Globals) error {
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := requireBilling(a); err != nil {
		return err
	}
	u := a.User()
	checkout, err := a.Billing.CreateCheckout(ctx, u.ID, u.Email)
	if err != nil {
		return err
	}
	return showURL(a, "Checkout", checkout.URL, c.Open)
}

type AccountManageCmd struct {
	Open bool `help:"Open the portal in the browser"`
}

func (c *AccountManageCmd) Run(ctx context.Context, g *Globals) error {
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := requireBilling(a); err != nil {
		return err
	}
	url, err := a.Billing.CreatePortal(ctx, a.User().ID, "")
	if errors.Is(err, billing.ErrNoCustomer) {
		return errors.New("no subscription yet, run: modelforge account upgrade")
	}
	if err != nil {
		return err
	}
	return showURL(a, "Billing portal", url, c.Open)
}

func requireBilling(a *app.App) error {
	if a.Billing == nil {
		return fmt.Errorf("%w, set billing.secret_key", billing.ErrDisabled)
	}
	return nil
}

func showURL(a *app.App, label, url string, open bool) error {
	ui.PrintKeyValue(label, url)
	if !open {
		return nil
	}
	return a.Desktop.OpenURL(url)
}
