// Package config loads gateway settings from the environment and the SFU
// roster from a TOML secrets file or a JSON environment variable.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/mediakit/sfu-gateway/internal/auth"
)

// Keys shorter than this still work but weaken HMAC-SHA256.
const expectedKeyLength = 32

// Gateway holds the process-level configuration read from the environment.
type Gateway struct {
	Bind string
	Port int
	// Key is the decoded secret used to verify inbound tokens.
	Key []byte
	// Nodes optionally carries the roster as a JSON string; it takes
	// precedence over the secrets file.
	Nodes string
	// SecretsPath is the TOML roster file used when Nodes is empty.
	SecretsPath string
	// TrustProxy marks the direct peer as a trusted reverse proxy; only then
	// is an inbound X-Forwarded-For chain honored.
	TrustProxy bool
}

// FromEnv loads gateway configuration.
//
// Variables:
//   - SFU_GATEWAY_BIND         address to bind (default "0.0.0.0")
//   - SFU_GATEWAY_PORT         port to listen on (default 8071)
//   - SFU_GATEWAY_KEY          base64-encoded JWT secret (required)
//   - SFU_GATEWAY_NODES        JSON string of SFU nodes (optional)
//   - SFU_GATEWAY_SECRETS      path to TOML secrets file (default "secrets.toml")
//   - SFU_GATEWAY_TRUST_PROXY  "true"/"1" to trust the upstream proxy
func FromEnv() (*Gateway, error) {
	// Values may come from a local .env file; absence is fine when the
	// variables are set in the real environment.
	if err := godotenv.Load(".env"); err != nil {
		log.Println("no .env file loaded:", err)
	}

	bind := os.Getenv("SFU_GATEWAY_BIND")
	if bind == "" {
		bind = "0.0.0.0"
	}

	portStr := os.Getenv("SFU_GATEWAY_PORT")
	if portStr == "" {
		portStr = "8071"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return nil, fmt.Errorf("environment variable SFU_GATEWAY_PORT: invalid port %q", portStr)
	}

	keyStr := os.Getenv("SFU_GATEWAY_KEY")
	if keyStr == "" {
		return nil, fmt.Errorf("environment variable SFU_GATEWAY_KEY: required but not set")
	}
	key, err := decodeAndValidateKey(keyStr)
	if err != nil {
		return nil, fmt.Errorf("environment variable SFU_GATEWAY_KEY: %w", err)
	}

	secretsPath := os.Getenv("SFU_GATEWAY_SECRETS")
	if secretsPath == "" {
		secretsPath = "secrets.toml"
	}

	trustProxy := false
	if v := os.Getenv("SFU_GATEWAY_TRUST_PROXY"); v != "" {
		trustProxy = strings.EqualFold(v, "true") || v == "1"
	}

	return &Gateway{
		Bind:        bind,
		Port:        port,
		Key:         key,
		Nodes:       os.Getenv("SFU_GATEWAY_NODES"),
		SecretsPath: secretsPath,
		TrustProxy:  trustProxy,
	}, nil
}

// SFUConfig describes one SFU node from the roster.
type SFUConfig struct {
	// Address is the base URL of the SFU (e.g. "http://sfu1.example.com:3000").
	Address string
	// Region is the geographic region identifier ("eu-west", "us-east", ...);
	// empty when the node is not region-labelled.
	Region string
	// Key is the decoded JWT secret for this SFU.
	Key []byte
}

// NodeData is the parsed roster.
type NodeData struct {
	SFU []SFUConfig
}

type rawNodeData struct {
	SFU []rawSFUConfig `toml:"sfu" json:"sfu"`
}

type rawSFUConfig struct {
	Address string `toml:"address" json:"address"`
	Region  string `toml:"region" json:"region"`
	Key     string `toml:"key" json:"key"`
}

// LoadNodes reads the roster from a TOML secrets file.
func LoadNodes(path string) (*NodeData, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", path, err)
	}
	var raw rawNodeData
	if err := toml.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	return fromRaw(raw)
}

// NodesFromJSON parses the roster from a JSON string (SFU_GATEWAY_NODES).
func NodesFromJSON(data string) (*NodeData, error) {
	var raw rawNodeData
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON config: %w", err)
	}
	return fromRaw(raw)
}

func fromRaw(raw rawNodeData) (*NodeData, error) {
	nodes := make([]SFUConfig, 0, len(raw.SFU))
	for i, rawSFU := range raw.SFU {
		key, err := decodeAndValidateKey(rawSFU.Key)
		if err != nil {
			return nil, fmt.Errorf("invalid key for sfu[%d] at %q: %w", i, rawSFU.Address, err)
		}
		nodes = append(nodes, SFUConfig{
			Address: rawSFU.Address,
			Region:  rawSFU.Region,
			Key:     key,
		})
	}
	return &NodeData{SFU: nodes}, nil
}

func decodeAndValidateKey(key string) ([]byte, error) {
	decoded, err := auth.DecodeKey(key)
	if err != nil {
		return nil, err
	}
	if len(decoded) < expectedKeyLength {
		log.Printf("warning: key is %d bytes, shorter than the %d recommended for HMAC-SHA256", len(decoded), expectedKeyLength)
	}
	return decoded, nil
}
