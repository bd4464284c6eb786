// Package verify checks caller-provided addresses and attorneys against
// Google Maps Platform.
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// ErrNotConfigured is returned by Noop and by MapsClient without a key.
var ErrNotConfigured = errors.New("verification not configured")

// #region types
// AddressResult is the outcome of an address lookup.
type AddressResult struct {
	Verified   bool
	Normalized string
	// State is the two-letter code of a US match, empty otherwise.
	State string
}

// Attorney is what the caller told us about their representation.
type Attorney struct {
	Name    string
	Firm    string
	Phone   string
	Address string
}

// AddressVerifier normalizes and verifies a street address.
type AddressVerifier interface {
	VerifyAddress(ctx context.Context, address string) (AddressResult, error)
}

// AttorneyVerifier checks that an attorney or firm exists.
type AttorneyVerifier interface {
	VerifyAttorney(ctx context.Context, a Attorney) (bool, error)
}

// Noop verifies nothing.
type Noop struct{}

func (Noop) VerifyAddress(context.Context, string) (AddressResult, error) {
	return AddressResult{}, ErrNotConfigured
}

func (Noop) VerifyAttorney(context.Context, Attorney) (bool, error) {
	return false, ErrNotConfigured
}
// #endregion types

// #region maps-client
// DefaultMapsURL is the Maps Platform API root.
const DefaultMapsURL = "https://maps.googleapis.com/maps/api"

// MapsClient implements both verifiers with the Geocoding and Places APIs.
type MapsClient struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
}

// NewMapsClient returns a client with an 8s request timeout.
func NewMapsClient(apiKey string) *MapsClient {
	return &MapsClient{
		APIKey:  apiKey,
		BaseURL: DefaultMapsURL,
		HTTP:    &http.Client{Timeout: 8 * time.Second},
	}
}

type component struct {
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

type place struct {
	PlaceID          string          `json:"place_id"`
	Name             string          `json:"name"`
	FormattedAddress string          `json:"formatted_address"`
	Components       []component     `json:"address_components"`
	Geometry         json.RawMessage `json:"geometry"`
	PartialMatch     bool            `json:"partial_match"`
	IntlPhone        string          `json:"international_phone_number"`
	LocalPhone       string          `json:"formatted_phone_number"`
}

var stateCodeRE = regexp.MustCompile(`^[A-Z]{2}$`)

// usState returns the state code when the components describe a US place.
func usState(cs []component) string {
	var state, country string
	for _, c := range cs {
		for _, t := range c.Types {
			switch t {
			case "administrative_area_level_1":
				state = c.ShortName
			case "country":
				country = c.ShortName
			}
		}
	}
	if !strings.EqualFold(country, "US") || !stateCodeRE.MatchString(state) {
		return ""
	}
	return state
}

func (m *MapsClient) get(ctx context.Context, path string, q url.Values, out any) error {
	q.Set("key", m.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimRight(m.BaseURL, "/")+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := m.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("maps %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("maps %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
// #endregion maps-client

// #region verify-address
// VerifyAddress geocodes address. Only exact US matches count as verified;
// the formatted address is returned whenever the API found one.
func (m *MapsClient) VerifyAddress(ctx context.Context, address string) (AddressResult, error) {
	if m.APIKey == "" {
		return AddressResult{Normalized: address}, ErrNotConfigured
	}
	var data struct {
		Status  string  `json:"status"`
		Results []place `json:"results"`
	}
	if err := m.get(ctx, "/geocode/json", url.Values{"address": {address}, "region": {"us"}}, &data); err != nil {
		return AddressResult{Normalized: address}, err
	}
	if data.Status != "OK" || len(data.Results) == 0 {
		return AddressResult{Normalized: address}, nil
	}
	best := data.Results[0]
	res := AddressResult{Normalized: best.FormattedAddress, State: usState(best.Components)}
	if res.Normalized == "" {
		res.Normalized = address
	}
	res.Verified = res.State != "" && len(best.Geometry) > 0 && !best.PartialMatch
	return res, nil
}
// #endregion verify-address

// #region verify-attorney
// VerifyAttorney searches Places for the attorney and firm and accepts a
// candidate whose name matches the firm and whose phone or address matches.
func (m *MapsClient) VerifyAttorney(ctx context.Context, a Attorney) (bool, error) {
	if m.APIKey == "" {
		return false, ErrNotConfigured
	}
	query := strings.Join(strings.Fields(strings.Join([]string{a.Name, a.Firm, a.Address}, " ")), " ")
	if query == "" {
		return false, nil
	}

	type searchResp struct {
		Status  string  `json:"status"`
		Results []place `json:"results"`
	}
	var ts searchResp
	if err := m.get(ctx, "/place/textsearch/json", url.Values{"query": {query}, "region": {"us"}}, &ts); err != nil {
		return false, err
	}
	if ts.Status != "OK" && ts.Status != "ZERO_RESULTS" {
		return false, fmt.Errorf("places text search: status %s", ts.Status)
	}
	if len(ts.Results) == 0 && a.Firm != "" && a.Firm != query {
		if err := m.get(ctx, "/place/textsearch/json", url.Values{"query": {a.Firm}, "region": {"us"}}, &ts); err != nil {
			return false, err
		}
	}

	for i, cand := range ts.Results {
		if i == 3 {
			break
		}
		if cand.PlaceID == "" {
			continue
		}
		var det struct {
			Status string `json:"status"`
			Result place  `json:"result"`
		}
		q := url.Values{
			"place_id": {cand.PlaceID},
			"fields":   {"name,formatted_address,international_phone_number,formatted_phone_number,address_components"},
		}
		if err := m.get(ctx, "/place/details/json", q, &det); err != nil {
			return false, err
		}
		if det.Status != "OK" {
			continue
		}
		if attorneyMatches(a, det.Result) {
			return true, nil
		}
	}
	return false, nil
}

func attorneyMatches(a Attorney, p place) bool {
	firmName := strings.ToLower(strings.TrimSpace(p.Name))
	nameOK := true
	if a.Firm != "" {
		lf := strings.ToLower(strings.TrimSpace(a.Firm))
		nameOK = strings.Contains(firmName, lf) || strings.Contains(lf, firmName)
	}
	phoneOK := true
	if a.Phone != "" {
		phone := p.IntlPhone
		if phone == "" {
			phone = p.LocalPhone
		}
		phoneOK = e164(a.Phone) != "" && e164(a.Phone) == e164(phone)
	}
	addrOK := true
	if a.Address != "" {
		street, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(a.Address)), ",")
		addrOK = strings.Contains(strings.ToLower(p.FormattedAddress), street)
	}
	return nameOK && (phoneOK || addrOK)
}

// e164 renders a US number as +1XXXXXXXXXX, or "" when it is not one.
func e164(s string) string {
	var d strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			d.WriteRune(r)
		}
	}
	digits := d.String()
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return ""
	}
	return "+1" + digits
}
// #endregion verify-attorney
