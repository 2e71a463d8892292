package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"shophub/models"
	"shophub/utils"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	stateCookie        = "oauth_state"
	googleUserInfoURL  = "https://www.googleapis.com/oauth2/v3/userinfo"
	oauthFailureMarker = "authentication_failed"
)

// GoogleBridge runs the authorization-code flow against Google and hands
// the resulting profile to the Provisioner.
type GoogleBridge struct {
	conf        *oauth2.Config
	userInfoURL string
	provisioner *Provisioner
}

func NewGoogleBridge(clientID, clientSecret, redirectURL string, p *Provisioner) *GoogleBridge {
	return &GoogleBridge{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoints.Google,
		},
		userInfoURL: googleUserInfoURL,
		provisioner: p,
	}
}

// Start redirects the browser to the provider's consent page.
func (g *GoogleBridge) Start(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	state := utils.GetUUID()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, g.conf.AuthCodeURL(state), http.StatusFound)
}

// Callback completes the code exchange and redirects to the frontend with
// either a token or an error marker.
func (g *GoogleBridge) Callback(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" || c.Value != r.URL.Query().Get("state") {
		log.Println("OAuth callback: state mismatch")
		http.Redirect(w, r, g.provisioner.FailureURL(oauthFailureMarker), http.StatusFound)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	prof, err := g.fetchProfile(ctx, r.URL.Query().Get("code"))
	if err != nil {
		log.Printf("OAuth callback: %v", err)
		http.Redirect(w, r, g.provisioner.FailureURL(oauthFailureMarker), http.StatusFound)
		return
	}

	target, err := g.provisioner.Provision(ctx, *prof)
	if err != nil {
		log.Printf("OAuth provisioning failed: %v", err)
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (g *GoogleBridge) fetchProfile(ctx context.Context, code string) (*models.ProviderProfile, error) {
	if code == "" {
		return nil, fmt.Errorf("missing authorization code")
	}
	tok, err := g.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.conf.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch userinfo: status %d", resp.StatusCode)
	}

	var prof models.ProviderProfile
	if err := json.NewDecoder(resp.Body).Decode(&prof); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return &prof, nil
}
