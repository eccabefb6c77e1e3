package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mediakit/sfu-gateway/internal/auth"
	"github.com/mediakit/sfu-gateway/internal/balancer"
	"github.com/mediakit/sfu-gateway/internal/geo"
)

// State is the shared per-process state handlers close over. Everything here
// is read-only after startup except the balancer's internal counter.
type State struct {
	Balancer *balancer.Balancer
	Client   *http.Client
	// GatewayKey verifies inbound tokens (decoded bytes).
	GatewayKey []byte
	// TrustProxy marks the upstream peer as a trusted reverse proxy.
	TrustProxy bool
}

// ChannelResponse is the body an SFU returns for a successful channel
// request; it is relayed to the caller verbatim.
type ChannelResponse struct {
	UUID string `json:"uuid"`
	URL  string `json:"url"`
}

// Noop is a liveness endpoint.
func Noop(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Channel forwards a channel request to a selected SFU.
//
// Flow:
//  1. Extract and verify the caller's token with the gateway key
//  2. Select an SFU from the region hint (explicit region, else country)
//  3. Re-sign the verified claims with the selected SFU's key
//  4. Forward with a sanitized query string and the proxy-chain header
//
// Every failure maps to one terminal response; nothing is retried and a
// failed forward never re-selects another SFU.
func Channel(state *State) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractToken(c.GetHeader("Authorization"))
		if err != nil {
			log.Printf("channel: missing authorization: %v", err)
			forwardTotal.WithLabelValues("unauthorized").Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		claims, err := auth.Verify(token, state.GatewayKey)
		if err != nil {
			// Detail stays in the log; callers get a generic message.
			log.Printf("channel: invalid token: %v", err)
			forwardTotal.WithLabelValues("unauthorized").Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		regionHint := c.Query("region")
		if regionHint == "" {
			if country := c.Query("country"); country != "" {
				if region, ok := geo.CountryToRegion(country); ok {
					regionHint = region
				}
			}
		}

		sfu := state.Balancer.Select(regionHint)
		if sfu == nil {
			log.Printf("channel: no SFU instances available (iss=%s)", claims.Issuer)
			forwardTotal.WithLabelValues("unavailable").Inc()
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no SFU instances available"})
			return
		}
		log.Printf("channel: iss=%s selected SFU %s", claims.Issuer, sfu.Address)
		selectionTotal.WithLabelValues(regionLabel(sfu.Region)).Inc()

		sfuToken, err := auth.Sign(claims, sfu.Key)
		if err != nil {
			log.Printf("channel: failed to sign token for SFU %s: %v", sfu.Address, err)
			forwardTotal.WithLabelValues("sign_failed").Inc()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		sfuURL := sfu.Address + "/v1/channel"
		if query := filterQueryParams(c.Request.URL.RawQuery); query != "" {
			sfuURL += "?" + query
		}

		req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, sfuURL, nil)
		if err != nil {
			log.Printf("channel: building SFU request for %s: %v", sfuURL, err)
			forwardTotal.WithLabelValues("internal_error").Inc()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		req.Header.Set("Authorization", "Bearer "+sfuToken)
		req.Header.Set("X-Forwarded-For", forwardedFor(c.Request, state.TrustProxy))

		resp, err := state.Client.Do(req)
		if err != nil {
			log.Printf("channel: failed to contact SFU %s: %v", sfu.Address, err)
			forwardTotal.WithLabelValues("contact_failed").Inc()
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to contact SFU"})
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			log.Printf("channel: SFU %s returned status %d", sfu.Address, resp.StatusCode)
			forwardTotal.WithLabelValues("mirrored").Inc()
			c.Status(resp.StatusCode)
			return
		}

		var channelResp ChannelResponse
		if err := json.NewDecoder(resp.Body).Decode(&channelResp); err != nil {
			log.Printf("channel: invalid response from SFU %s: %v", sfu.Address, err)
			forwardTotal.WithLabelValues("bad_response").Inc()
			c.JSON(http.StatusBadGateway, gin.H{"error": "invalid SFU response"})
			return
		}

		log.Printf("channel: created uuid=%s url=%s", channelResp.UUID, channelResp.URL)
		forwardTotal.WithLabelValues("ok").Inc()
		c.JSON(http.StatusOK, channelResp)
	}
}

func regionLabel(region string) string {
	if region == "" {
		return "none"
	}
	return region
}
