package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"shophub/apperr"
	"shophub/globals"
	"shophub/models"
	"shophub/rdx"
	"shophub/store"
)

// EmailNotProvided is the error marker sent to the frontend when the identity
// provider withholds the email address.
const EmailNotProvided = "email_not_provided"

// Provisioner maps a successful identity-provider login onto a local account.
type Provisioner struct {
	accounts store.AccountStore
	tokens   TokenService
	cache    rdx.Invalidator
	frontend string
}

func NewProvisioner(accounts store.AccountStore, tokens TokenService, cache rdx.Invalidator, frontendURL string) *Provisioner {
	return &Provisioner{
		accounts: accounts,
		tokens:   tokens,
		cache:    cache,
		frontend: strings.TrimRight(frontendURL, "/"),
	}
}

// FailureURL is the frontend page that reports a failed provider login.
func (p *Provisioner) FailureURL(marker string) string {
	return p.frontend + "/auth/user?error=" + url.QueryEscape(marker)
}

func (p *Provisioner) successURL(token string) string {
	return p.frontend + "/oauth2/redirect?token=" + url.QueryEscape(token)
}

// Provision finds or creates the account for prof, mints a fresh token, stores
// it on the account and returns the frontend callback URL carrying it.
// On failure the returned URL is the frontend error page.
func (p *Provisioner) Provision(ctx context.Context, prof models.ProviderProfile) (string, error) {
	email := strings.TrimSpace(prof.Email)
	if email == "" {
		return p.FailureURL(EmailNotProvided), apperr.InvalidArgument(EmailNotProvided)
	}

	acc, err := p.accounts.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if acc.ProfileImage == "" {
			acc.ProfileImage = prof.Picture
		}
	case errors.Is(err, apperr.ErrNotFound):
		acc = &models.Account{
			FirstName:      prof.GivenName,
			LastName:       prof.FamilyName,
			Email:          email,
			ProfileImage:   prof.Picture,
			Roles:          []string{globals.RoleUser},
			CartItems:      []models.CartLine{},
			Addresses:      []string{},
			BuyingProducts: []string{},
			Orders:         []string{},
		}
		// Saved first so the token can carry the assigned id.
		if err := p.accounts.Save(ctx, acc); err != nil {
			return p.FailureURL("provisioning_failed"), err
		}
	default:
		return p.FailureURL("provisioning_failed"), err
	}

	token, err := p.tokens.Issue(acc.ID, acc.Email, acc.FirstName, acc.LastName)
	if err != nil {
		return p.FailureURL("provisioning_failed"), err
	}
	acc.JwtToken = token
	if err := p.accounts.Save(ctx, acc); err != nil {
		return p.FailureURL("provisioning_failed"), err
	}
	rdx.Evict(ctx, p.cache, acc.Email)
	return p.successURL(token), nil
}
