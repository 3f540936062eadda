package grant

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goliatone/go-confidential/core"
)

type clientInfo struct {
	UID  string `json:"uid"`
	UTID string `json:"utid"`
}

// extractAccount pulls the user identity out of the response. Both sources
// are optional: an app-only result carries neither client_info nor an
// id_token and yields the zero Account.
func extractAccount(response *core.TokenResponse, environment string) core.Account {
	account := core.Account{}

	if info, err := decodeClientInfo(response.ClientInfo); err == nil {
		if info.UID != "" && info.UTID != "" {
			account.HomeAccountID = info.UID + "." + info.UTID
		}
	}

	if claims, err := decodeJWTPayload(response.IDToken); err == nil {
		account.Username = firstClaimString(claims, "preferred_username", "upn", "email")
	}

	if !account.IsZero() {
		account.Environment = strings.TrimSpace(environment)
	}
	return account
}

func decodeClientInfo(raw string) (clientInfo, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return clientInfo{}, fmt.Errorf("grant: client_info is empty")
	}
	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return clientInfo{}, fmt.Errorf("grant: decode client_info: %w", err)
	}
	info := clientInfo{}
	if err := json.Unmarshal(decoded, &info); err != nil {
		return clientInfo{}, fmt.Errorf("grant: decode client_info payload: %w", err)
	}
	info.UID = strings.TrimSpace(info.UID)
	info.UTID = strings.TrimSpace(info.UTID)
	return info, nil
}

func decodeJWTPayload(token string) (map[string]any, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("grant: invalid id_token format")
	}
	decoded, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("grant: decode id_token payload: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(decoded, &payload); err != nil {
		return nil, fmt.Errorf("grant: decode id_token claims: %w", err)
	}
	return payload, nil
}

func firstClaimString(claims map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := claims[key].(string); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}
