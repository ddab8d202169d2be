package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Adversarial probe for cross-tenant read isolation. It provisions a
// throwaway account, then tries to read another organization's rows both
// with an explicit organization header and without any filter, and exits
// non-zero if any foreign row comes back.
//
// Usage:
//   API_URL=http://localhost:8080/api/v1 TARGET_ORG_ID=<uuid> verify-isolation

var scopedCollections = []string{
	"/contacts",
	"/conversations",
	"/campaigns",
	"/templates",
	"/appointments",
	"/team",
}

type page struct {
	Data []struct {
		ID             uuid.UUID `json:"id"`
		OrganizationID uuid.UUID `json:"organization_id"`
	} `json:"data"`
	Total int64 `json:"total"`
}

type probe struct {
	baseURL string
	client  *http.Client
	token   string
	orgID   uuid.UUID
}

func main() {
	godotenv.Load()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	baseURL := os.Getenv("API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080/api/v1"
	}

	targetOrg, err := uuid.Parse(os.Getenv("TARGET_ORG_ID"))
	if err != nil {
		log.Fatal().Msg("TARGET_ORG_ID must be a valid organization UUID")
	}

	p := &probe{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}

	if err := p.provision(); err != nil {
		log.Fatal().Err(err).Msg("failed to provision attacker account")
	}
	log.Info().Str("organization_id", p.orgID.String()).Msg("attacker provisioned")

	if p.orgID == targetOrg {
		log.Fatal().Msg("attacker landed in the target organization, pick another target")
	}

	breaches := 0

	// Control: the attacker's own collections must be readable.
	for _, path := range scopedCollections {
		if _, err := p.read(path, nil); err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("control read failed")
		}
	}
	log.Info().Msg("control reads passed")

	// Probe 1: explicit foreign organization header. Non-admin principals
	// must have the header ignored, so no target rows may appear.
	headers := map[string]string{"X-Organization-ID": targetOrg.String()}
	for _, path := range scopedCollections {
		breaches += p.assertNoForeignRows(path, headers, targetOrg)
	}

	// Probe 2: unscoped reads. The row policy, not the query shape, is
	// the boundary, so plain reads must also stay inside the tenant.
	for _, path := range scopedCollections {
		breaches += p.assertNoForeignRows(path, nil, targetOrg)
	}

	if breaches > 0 {
		log.Error().Int("breaches", breaches).Msg("ISOLATION BREACH")
		os.Exit(1)
	}

	log.Info().Msg("isolation holds: no cross-tenant rows returned")
}

func (p *probe) provision() error {
	email := fmt.Sprintf("probe-%s@example.com", uuid.New().String()[:8])
	password := uuid.New().String()

	body := map[string]string{
		"email":    email,
		"password": password,
		"name":     "Isolation Probe",
	}
	var signup struct {
		AccessToken string `json:"access_token"`
		User        struct {
			OrganizationID *uuid.UUID `json:"organization_id"`
		} `json:"user"`
	}
	if err := p.post("/auth/signup", body, &signup); err != nil {
		return err
	}
	if signup.AccessToken == "" {
		return fmt.Errorf("signup returned no token")
	}

	p.token = signup.AccessToken
	if signup.User.OrganizationID != nil {
		p.orgID = *signup.User.OrganizationID
	}
	return nil
}

func (p *probe) post(path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (p *probe) read(path string, headers map[string]string) (*page, error) {
	req, err := http.NewRequest(http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// A refusal is as good as an empty page for isolation purposes.
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusBadRequest {
		return &page{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %d", path, resp.StatusCode)
	}

	var result page
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (p *probe) assertNoForeignRows(path string, headers map[string]string, targetOrg uuid.UUID) int {
	result, err := p.read(path, headers)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("probe read failed")
		return 1
	}

	foreign := 0
	for _, row := range result.Data {
		if row.OrganizationID == targetOrg {
			foreign++
		}
	}
	if foreign > 0 {
		log.Error().Str("path", path).Int("rows", foreign).Msg("foreign rows returned")
		return 1
	}
	return 0
}
