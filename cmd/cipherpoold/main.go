package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/cipherpool/cipherpool/api"
	"github.com/cipherpool/cipherpool/crypto/ethereum"
	"github.com/cipherpool/cipherpool/crypto/fhe/localfhe"
	"github.com/cipherpool/cipherpool/log"
	"github.com/cipherpool/cipherpool/pool"
	"github.com/cipherpool/cipherpool/storage"
	"github.com/cipherpool/cipherpool/storage/db"
	"github.com/cipherpool/cipherpool/storage/db/metadb"
)

// Config holds the daemon configuration. Flags override values loaded from
// the optional YAML config file.
type Config struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	DataDir   string `yaml:"dataDir"`
	DBType    string `yaml:"dbType"`
	LogLevel  string `yaml:"logLevel"`
	LogOutput string `yaml:"logOutput"`
	// PrivKey is the hex ECDSA key identifying this service. The engine
	// derives its sealing key from it, so a stable key keeps previously
	// stored handles decryptable across restarts.
	PrivKey string `yaml:"privKey"`
	// Gateway is the address whose attestations the engine accepts on
	// ciphertext import.
	Gateway string `yaml:"gateway"`
}

func defaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Host:      "0.0.0.0",
		Port:      8080,
		DataDir:   home + "/.cipherpool",
		DBType:    db.TypePebble,
		LogLevel:  "info",
		LogOutput: "stdout",
	}
}

func loadConfig() (*Config, error) {
	cfg := defaultConfig()

	configFile := flag.String("config", "", "path to YAML config file")
	host := flag.String("host", cfg.Host, "API listen host")
	port := flag.Int("port", cfg.Port, "API listen port")
	dataDir := flag.String("datadir", cfg.DataDir, "data directory")
	dbType := flag.String("dbtype", cfg.DBType, "key-value database type")
	logLevel := flag.String("loglevel", cfg.LogLevel, "log level (debug, info, warn, error)")
	logOutput := flag.String("logoutput", cfg.LogOutput, "log output (stdout, stderr or file path)")
	privKey := flag.String("privkey", "", "hex ECDSA private key identifying this service")
	gateway := flag.String("gateway", "", "address of the attestation gateway")
	flag.Parse()

	if *configFile != "" {
		data, err := os.ReadFile(*configFile)
		if err != nil {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("could not parse config file: %w", err)
		}
	}

	// Flags set explicitly on the command line win over the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = *host
		case "port":
			cfg.Port = *port
		case "datadir":
			cfg.DataDir = *dataDir
		case "dbtype":
			cfg.DBType = *dbType
		case "loglevel":
			cfg.LogLevel = *logLevel
		case "logoutput":
			cfg.LogOutput = *logOutput
		case "privkey":
			cfg.PrivKey = *privKey
		case "gateway":
			cfg.Gateway = *gateway
		}
	})
	return cfg, nil
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	log.Init(cfg.LogLevel, cfg.LogOutput, nil)

	signer := ethereum.NewSignKeys()
	if cfg.PrivKey != "" {
		if err := signer.AddHexKey(cfg.PrivKey); err != nil {
			log.Fatalf("invalid private key: %v", err)
		}
	} else {
		if err := signer.Generate(); err != nil {
			log.Fatal(err)
		}
		log.Warnw("no private key provided, generated an ephemeral one",
			"address", signer.AddressString())
	}

	// Without an explicit gateway the service trusts its own signatures,
	// which is only useful for local development.
	gatewayAddr := signer.Address()
	if cfg.Gateway != "" {
		if !common.IsHexAddress(cfg.Gateway) {
			log.Fatalf("invalid gateway address %q", cfg.Gateway)
		}
		gatewayAddr = common.HexToAddress(cfg.Gateway)
	} else {
		log.Warnw("no gateway address provided, accepting self-signed attestations",
			"address", gatewayAddr.String())
	}

	_, privHex := signer.HexString()
	engine, err := localfhe.NewFromHexKey(privHex, gatewayAddr)
	if err != nil {
		log.Fatal(err)
	}

	database, err := metadb.New(cfg.DBType, cfg.DataDir)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Errorw(err, "could not close database")
		}
	}()

	pools := pool.New(storage.New(database), engine, signer.Address())
	if _, err := api.New(&api.APIConfig{
		Host:  cfg.Host,
		Port:  cfg.Port,
		Pools: pools,
	}); err != nil {
		log.Fatal(err)
	}

	log.Infow("cipherpool daemon started",
		"version", pools.Version(),
		"address", signer.AddressString(),
		"gateway", gatewayAddr.String(),
		"dataDir", cfg.DataDir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")
}
