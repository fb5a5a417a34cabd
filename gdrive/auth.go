package gdrive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/camden-git/photovaultbackend/models"
	"github.com/camden-git/photovaultbackend/repository"
)

// ErrNotConnected is returned when a user has no stored provider credentials
var ErrNotConnected = errors.New("folder-tree provider not connected for user")

// expirySkew refreshes tokens slightly before their reported expiry so a
// token never dies mid-request
const expirySkew = time.Minute

// TokenBroker obtains a valid delegated access token for a user,
// transparently refreshing and re-encrypting the stored credentials when the
// short-lived token has expired.
type TokenBroker struct {
	repo         repository.DriveAuthRepositoryInterface
	cipher       *TokenCipher
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

// NewTokenBroker creates a broker over the given credential store
func NewTokenBroker(repo repository.DriveAuthRepositoryInterface, cipher *TokenCipher, tokenURL, clientID, clientSecret string) *TokenBroker {
	return &TokenBroker{
		repo:         repo,
		cipher:       cipher,
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Connect stores (or replaces) a user's credentials, encrypting both tokens
func (b *TokenBroker) Connect(userID uint, accessToken, refreshToken string, expiresAt time.Time) error {
	encAccess, err := b.cipher.Encrypt(accessToken)
	if err != nil {
		return err
	}
	encRefresh, err := b.cipher.Encrypt(refreshToken)
	if err != nil {
		return err
	}
	return b.repo.Upsert(&models.DriveAuth{
		UserID:       userID,
		AccessToken:  encAccess,
		RefreshToken: encRefresh,
		ExpiresAt:    expiresAt,
	})
}

// Token returns a valid access token for the user, refreshing first if the
// stored one has expired
func (b *TokenBroker) Token(ctx context.Context, userID uint) (string, error) {
	auth, err := b.repo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNotConnected
		}
		return "", err
	}

	if time.Now().Add(expirySkew).Before(auth.ExpiresAt) {
		return b.cipher.Decrypt(auth.AccessToken)
	}

	refreshToken, err := b.cipher.Decrypt(auth.RefreshToken)
	if err != nil {
		return "", err
	}

	accessToken, expiresAt, err := b.refresh(ctx, refreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh provider token for user %d: %w", userID, err)
	}

	encAccess, err := b.cipher.Encrypt(accessToken)
	if err != nil {
		return "", err
	}
	if err := b.repo.UpdateAccessToken(userID, encAccess, expiresAt); err != nil {
		// the refreshed token is still usable for this request
		log.Printf("gdrive: failed to persist refreshed token for user %d: %v", userID, err)
	}
	return accessToken, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// refresh exchanges the long-lived refresh token for a new short-lived
// access token at the provider's token endpoint
func (b *TokenBroker) refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {b.clientID},
		"client_secret": {b.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", time.Time{}, fmt.Errorf("token endpoint returned empty access token")
	}
	return tr.AccessToken, time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second), nil
}
