package github

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"ossmk/internal/platform/config"
	perr "ossmk/internal/platform/errors"

	"github.com/golang-jwt/jwt/v5"
)

const appTokenTimeout = 30 * time.Second

// ResolveToken returns the bearer credential for API calls: a GitHub App
// installation token when the app env is configured, else a personal access
// token from GITHUB_TOKEN / GH_TOKEN (checked in that order). Missing
// credentials fail before any fetch is attempted.
// cfg must be unscoped; GitHub credentials keep their conventional names.
func ResolveToken(ctx context.Context, cfg config.Conf, apiBase string) (string, error) {
	if tok, ok, err := appInstallationToken(ctx, cfg, apiBase); err != nil {
		return "", err
	} else if ok {
		return tok, nil
	}

	if tok := cfg.MayString("GITHUB_TOKEN", ""); tok != "" {
		return tok, nil
	}
	if tok := cfg.MayString("GH_TOKEN", ""); tok != "" {
		return tok, nil
	}
	return "", perr.Unauthorizedf("github credentials missing: set GITHUB_TOKEN or GH_TOKEN")
}

// appInstallationToken mints the short-lived App JWT and exchanges it for an
// installation token. ok=false means the app env is not configured.
func appInstallationToken(ctx context.Context, cfg config.Conf, apiBase string) (string, bool, error) {
	appID := cfg.MayString("GITHUB_APP_ID", "")
	pem := cfg.MayString("GITHUB_APP_PRIVATE_KEY", "")
	if appID == "" || pem == "" {
		return "", false, nil
	}
	if apiBase == "" {
		apiBase = baseURLDefault
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM(readPEM(pem))
	if err != nil {
		return "", false, perr.Wrapf(err, perr.ErrorCodeUnauthorized, "github app private key")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now.Add(-60 * time.Second)),
		ExpiresAt: jwt.NewNumericDate(now.Add(9 * time.Minute)),
		Issuer:    appID,
	}
	appJWT, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", false, perr.Wrapf(err, perr.ErrorCodeUnauthorized, "github app jwt sign")
	}

	httpc := &http.Client{Timeout: appTokenTimeout}

	instID := cfg.MayString("GITHUB_APP_INSTALLATION_ID", "")
	if instID == "" {
		instID, err = discoverInstallation(ctx, httpc, apiBase, appJWT,
			cfg.MayString("OSSMK_GH_INSTALLATION_OWNER", ""))
		if err != nil {
			return "", false, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		apiBase+"/app/installations/"+instID+"/access_tokens", nil)
	if err != nil {
		return "", false, perr.Wrapf(err, perr.ErrorCodeUnknown, "github app token request")
	}
	req.Header.Set("Authorization", "Bearer "+appJWT)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := httpc.Do(req)
	if err != nil {
		return "", false, perr.Wrapf(err, perr.ErrorCodeNetwork, "github app token exchange")
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", false, perr.Unauthorizedf("github app token exchange status %d: %s", resp.StatusCode, body)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", false, perr.Wrapf(err, perr.ErrorCodeJSON, "github app token decode")
	}
	return out.Token, true, nil
}

// discoverInstallation lists app installations and picks by account login
// (fold-compared) when owner is set, else the first installation
func discoverInstallation(ctx context.Context, httpc *http.Client, apiBase, appJWT, owner string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiBase+"/app/installations", nil)
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeUnknown, "github installations request")
	}
	req.Header.Set("Authorization", "Bearer "+appJWT)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := httpc.Do(req)
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeNetwork, "github installations list")
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", perr.Unauthorizedf("github installations list status %d", resp.StatusCode)
	}

	var installs []struct {
		ID      int64 `json:"id"`
		Account struct {
			Login string `json:"login"`
		} `json:"account"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&installs); err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeJSON, "github installations decode")
	}
	if len(installs) == 0 {
		return "", perr.Unauthorizedf("github app has no installations")
	}

	if owner != "" {
		for _, ins := range installs {
			if strings.EqualFold(ins.Account.Login, owner) {
				return strconv.FormatInt(ins.ID, 10), nil
			}
		}
	}
	return strconv.FormatInt(installs[0].ID, 10), nil
}

// readPEM accepts the key inline or as a path to a PEM file
func readPEM(v string) []byte {
	if strings.Contains(v, "-----BEGIN") {
		return []byte(v)
	}
	if b, err := os.ReadFile(v); err == nil {
		return b
	}
	return []byte(v)
}
