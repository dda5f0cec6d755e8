package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the relay service.
type Config struct {
	AppMode string
	Port    string
	Fabric  FabricConfig
	IPFS    IPFSConfig
}

// FabricConfig holds the connection profile for the gateway peer.
type FabricConfig struct {
	MSPID         string
	CertPath      string
	KeyPath       string
	TLSCertPath   string
	PeerEndpoint  string
	GatewayPeer   string
	ChannelName   string
	ChaincodeName string
}

// IPFSConfig holds the content store endpoints. APIURL is the node's RPC API,
// GatewayURL the public read gateway used to build shareable links.
type IPFSConfig struct {
	APIURL     string
	GatewayURL string
}

// Load reads configuration from a .env file and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg := &Config{
		AppMode: strings.TrimSpace(getEnv("APP_MODE", "dev")),
		Port:    getEnv("PORT", "3001"),
		Fabric: FabricConfig{
			MSPID:         getEnv("FABRIC_MSP_ID", "Org1MSP"),
			CertPath:      getEnv("FABRIC_CERT_PATH", "./wallet/cert.pem"),
			KeyPath:       getEnv("FABRIC_KEY_PATH", "./wallet/key.pem"),
			TLSCertPath:   getEnv("FABRIC_TLS_CERT_PATH", "./wallet/tls-cert.pem"),
			PeerEndpoint:  getEnv("FABRIC_PEER_ENDPOINT", "localhost:7051"),
			GatewayPeer:   getEnv("FABRIC_GATEWAY_PEER", "peer0.org1.example.com"),
			ChannelName:   getEnv("FABRIC_CHANNEL", "coffeechannel"),
			ChaincodeName: getEnv("FABRIC_CHAINCODE", "coffeetrace"),
		},
		IPFS: IPFSConfig{
			APIURL:     getEnv("IPFS_API_URL", "http://localhost:5001"),
			GatewayURL: getEnv("IPFS_GATEWAY_URL", "https://ipfs.io/ipfs"),
		},
	}

	log.Printf("Configuration loaded [MODE: %s]", cfg.AppMode)
	return cfg, nil
}

// IsDev reports whether the relay runs in development mode.
func (c *Config) IsDev() bool {
	return c.AppMode != "prod"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
