// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2020 The Lightning Network Developers

package dcrwalletmgr

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/decred/dcrd/chaincfg/v3"
	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/decred/dcrwalletmgr/boltwallet"
	"github.com/decred/dcrwalletmgr/build"
	"github.com/decred/dcrwalletmgr/signal"
	"github.com/decred/dcrwalletmgr/walletcfg"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "dcrwalletmgr.conf"
	defaultDataDirname    = "data"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "dcrwalletmgr.log"
	defaultMaxLogFiles    = 3
	defaultMaxLogFileSize = 10
)

var (
	// DefaultAppDir is the default directory where dcrwalletmgr tries to
	// find its configuration file and store its data. This is a directory
	// in the user's application data, for example:
	// C:\Users\<username>\AppData\Local\Dcrwalletmgr on Windows
	// ~/.dcrwalletmgr on Linux
	// ~/Library/Application Support/Dcrwalletmgr on MacOS
	DefaultAppDir = dcrutil.AppDataDir("dcrwalletmgr", false)

	// DefaultConfigFile is the default full path of the configuration
	// file.
	DefaultConfigFile = filepath.Join(DefaultAppDir, defaultConfigFilename)

	defaultDataDir = filepath.Join(DefaultAppDir, defaultDataDirname)
	defaultLogDir  = filepath.Join(DefaultAppDir, defaultLogDirname)

	// defaultLegacyDataDir is where single wallet installations kept their
	// wallet.
	defaultLegacyDataDir = dcrutil.AppDataDir("dcrwallet", false)
)

// Config defines the configuration options for dcrwalletmgr.
//
// See LoadConfig for further details regarding the configuration
// loading+parsing process.
type Config struct {
	ShowVersion bool `short:"V" long:"version" description:"Display version information and exit"`

	AppDir        string `long:"appdir" description:"The base directory that contains the data, logs, configuration file, etc."`
	ConfigFile    string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir       string `short:"b" long:"datadir" description:"The directory to store data within"`
	LegacyDataDir string `long:"legacydatadir" description:"Data directory of a single wallet installation whose wallet is copied on first run"`

	LogDir         string `long:"logdir" description:"Directory to log output."`
	MaxLogFiles    int    `long:"maxlogfiles" description:"Maximum logfiles to keep (0 for no rotation)"`
	MaxLogFileSize int    `long:"maxlogfilesize" description:"Maximum logfile size in MB"`
	DebugLevel     string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <global-level>,<subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`

	TestNet bool `long:"testnet" description:"Use the test network"`
	SimNet  bool `long:"simnet" description:"Use the simulation test network"`

	DBTimeout        time.Duration `long:"dbtimeout" description:"How long to wait for another process to release a wallet database"`
	PrometheusListen string        `long:"prometheus.listen" description:"Serve wallet metrics on this address (disabled if empty)"`

	Wallet     *walletcfg.Wallet     `group:"Wallet"`
	Node       *walletcfg.Node       `group:"Node"`
	Automation *walletcfg.Automation `group:"Automation"`

	// WalletOptions is the view of the wallet options handed to the
	// parameter interaction rules, carrying where each value came from.
	WalletOptions walletcfg.Snapshot

	// ActiveNetParams contains parameters of the target chain.
	ActiveNetParams *chaincfg.Params

	// LogWriter is the root logger that all of the daemon's subloggers are
	// hooked up to.
	LogWriter *build.RotatingLogWriter
}

// DefaultConfig returns all default values for the Config struct.
func DefaultConfig() Config {
	return Config{
		AppDir:          DefaultAppDir,
		ConfigFile:      DefaultConfigFile,
		DataDir:         defaultDataDir,
		LegacyDataDir:   defaultLegacyDataDir,
		LogDir:          defaultLogDir,
		MaxLogFiles:     defaultMaxLogFiles,
		MaxLogFileSize:  defaultMaxLogFileSize,
		DebugLevel:      defaultLogLevel,
		DBTimeout:       boltwallet.DefaultOpenTimeout,
		Wallet:          walletcfg.DefaultWallet(),
		Node:            walletcfg.DefaultNode(),
		Automation:      walletcfg.DefaultAutomation(),
		ActiveNetParams: chaincfg.MainNetParams(),
		LogWriter:       build.NewRotatingLogWriter(),
	}
}

// LoadConfig initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
func LoadConfig(interceptor signal.Interceptor) (*Config, error) {
	return loadConfig(os.Args[1:], interceptor)
}

func loadConfig(args []string, interceptor signal.Interceptor) (*Config,
	error) {

	// Pre-parse the command line options to pick up an alternative config
	// file.
	preCfg := DefaultConfig()
	if _, err := flags.NewParser(&preCfg, flags.Default).ParseArgs(args); err != nil {
		return nil, err
	}

	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)
	if preCfg.ShowVersion {
		commit := build.SourceCommit()
		if commit != "" {
			commit = fmt.Sprintf("Commit %s; ", commit)
		}
		fmt.Printf("%s version %s (%sGo version %s %s/%s)\n",
			appName, build.Version(), commit,
			runtime.Version(), runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	// If the config file path has not been modified by the user, then we'll
	// use the default config file path. However, if the user has modified
	// their appdir, then we should assume they intend to use the config
	// file within it.
	configFileDir := CleanAndExpandPath(preCfg.AppDir)
	configFilePath := CleanAndExpandPath(preCfg.ConfigFile)
	if configFileDir != DefaultAppDir && configFilePath == DefaultConfigFile {
		configFilePath = filepath.Join(configFileDir, defaultConfigFilename)
	}

	// Next, load any additional configuration options from the file. The
	// same parser is used for the command line so that it can tell which
	// options were set by the user in either place.
	var configFileError error
	cfg := DefaultConfig()
	parser := flags.NewParser(&cfg, flags.Default)
	err := flags.NewIniParser(parser).ParseFile(configFilePath)
	if err != nil {
		// If it's a parsing related error, then we'll return
		// immediately, otherwise we can proceed as possibly the config
		// file doesn't exist which is OK.
		if _, ok := err.(*flags.IniError); ok {
			return nil, err
		}

		configFileError = err
	}

	// Finally, parse the remaining command line options again to ensure
	// they take precedence.
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	isSet := func(name string) bool {
		opt := parser.FindOptionByLongName(name)
		return opt != nil && opt.IsSet()
	}

	// Make sure everything we just loaded makes sense.
	cleanCfg, err := ValidateConfig(cfg, isSet, usageMessage, interceptor)
	if err != nil {
		return nil, err
	}

	// Warn about missing config file only after all other configuration is
	// done.  This prevents the warning on help messages and invalid
	// options.  Note this should go directly before the return.
	if configFileError != nil {
		wmgrLog.Warnf("%v", configFileError)
	}

	return cleanCfg, nil
}

// ValidateConfig check the given configuration to be sane. All file system
// paths are normalized and the wallet options are captured together with
// their origin. isSet reports whether the user set the option with the given
// long name. The cleaned up config is returned on success.
//
// The wallet parameter interaction rules are not applied here; they run at
// startup so that their messages reach the log.
func ValidateConfig(cfg Config, isSet func(string) bool, usageMessage string,
	interceptor signal.Interceptor) (*Config, error) {

	funcName := "loadConfig"

	// If the provided app directory is not the default, we'll modify the
	// path to all of the files and directories that will live within it.
	appDir := CleanAndExpandPath(cfg.AppDir)
	if appDir != DefaultAppDir {
		if !isSet("datadir") {
			cfg.DataDir = filepath.Join(appDir, defaultDataDirname)
		}
		if !isSet("logdir") {
			cfg.LogDir = filepath.Join(appDir, defaultLogDirname)
		}
	}

	// As soon as we're done parsing configuration options, ensure all paths
	// to directories and files are cleaned and expanded before attempting
	// to use them later on.
	cfg.DataDir = CleanAndExpandPath(cfg.DataDir)
	cfg.LegacyDataDir = CleanAndExpandPath(cfg.LegacyDataDir)
	cfg.LogDir = CleanAndExpandPath(cfg.LogDir)
	cfg.Wallet.WalletDir = CleanAndExpandPath(cfg.Wallet.WalletDir)

	// Multiple networks can't be selected simultaneously.  Count number of
	// network flags passed; assign active network params while we're at
	// it.
	numNets := 0
	if cfg.TestNet {
		numNets++
		cfg.ActiveNetParams = chaincfg.TestNet3Params()
	}
	if cfg.SimNet {
		numNets++
		cfg.ActiveNetParams = chaincfg.SimNetParams()
	}
	if numNets > 1 {
		str := "%s: The testnet and simnet params can't be used " +
			"together -- choose one of the two"
		err := fmt.Errorf(str, funcName)
		_, _ = fmt.Fprintln(os.Stderr, err)
		_, _ = fmt.Fprintln(os.Stderr, usageMessage)
		return nil, err
	}
	if cfg.ActiveNetParams == nil {
		cfg.ActiveNetParams = chaincfg.MainNetParams()
	}

	// Append the network type to the data, legacy and log directories so
	// they are "namespaced" per network.
	network := normalizeNetwork(cfg.ActiveNetParams.Name)
	cfg.DataDir = filepath.Join(cfg.DataDir, network)
	cfg.LegacyDataDir = filepath.Join(cfg.LegacyDataDir, network)
	cfg.LogDir = filepath.Join(cfg.LogDir, network)

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		str := "%s: failed to create data directory: %v"
		err := fmt.Errorf(str, funcName, err)
		_, _ = fmt.Fprintln(os.Stderr, err)
		return nil, err
	}

	if cfg.DBTimeout <= 0 {
		return nil, fmt.Errorf("%s: dbtimeout must be positive", funcName)
	}
	if cfg.Automation.MaintenanceInterval <= 0 {
		return nil, fmt.Errorf("%s: maintenanceinterval must be "+
			"positive", funcName)
	}

	opts, err := walletSnapshot(&cfg, isSet)
	if err != nil {
		err := fmt.Errorf("%s: %v", funcName, err)
		_, _ = fmt.Fprintln(os.Stderr, err)
		_, _ = fmt.Fprintln(os.Stderr, usageMessage)
		return nil, err
	}
	cfg.WalletOptions = opts

	// A log writer must be passed in, otherwise we can't function and would
	// run into a panic later on.
	if cfg.LogWriter == nil {
		return nil, fmt.Errorf("log writer missing in config")
	}

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		SetupLoggers(cfg.LogWriter, interceptor)
		fmt.Println("Supported subsystems",
			cfg.LogWriter.SupportedSubsystems())
		os.Exit(0)
	}

	// Initialize logging at the default logging level.
	SetupLoggers(cfg.LogWriter, interceptor)
	err = cfg.LogWriter.InitLogRotator(
		filepath.Join(cfg.LogDir, defaultLogFilename),
		cfg.MaxLogFileSize, cfg.MaxLogFiles,
	)
	if err != nil {
		str := "%s: log rotation setup failed: %v"
		err = fmt.Errorf(str, funcName, err.Error())
		_, _ = fmt.Fprintln(os.Stderr, err)
		return nil, err
	}

	// Parse, validate, and set debug log level(s).
	err = build.ParseAndSetDebugLevels(cfg.DebugLevel, cfg.LogWriter)
	if err != nil {
		err = fmt.Errorf("%s: %v", funcName, err.Error())
		_, _ = fmt.Fprintln(os.Stderr, err)
		_, _ = fmt.Fprintln(os.Stderr, usageMessage)
		return nil, err
	}

	return &cfg, nil
}

// walletSnapshot captures the wallet and node options the parameter
// interaction rules work on.
func walletSnapshot(cfg *Config, isSet func(string) bool) (walletcfg.Snapshot,
	error) {

	origin := func(name string, v bool) walletcfg.Bool {
		if isSet(name) {
			return walletcfg.UserBool(v)
		}
		return walletcfg.DefaultBool(v)
	}

	fee, err := dcrutil.NewAmount(cfg.Node.MinRelayTxFee)
	if err != nil {
		return walletcfg.Snapshot{}, fmt.Errorf("invalid "+
			"minrelaytxfee: %v", err)
	}
	if fee < 0 {
		return walletcfg.Snapshot{}, errors.New("minrelaytxfee must " +
			"not be negative")
	}

	w, n := cfg.Wallet, cfg.Node
	return walletcfg.Snapshot{
		DisableWallet:    w.DisableWallet,
		Wallets:          w.Wallets,
		WalletDir:        w.WalletDir,
		WalletDirSet:     isSet("walletdir"),
		Salvage:          origin("salvagewallet", w.SalvageWallet),
		ZapMode:          w.ZapWalletTxes,
		Rescan:           origin("rescan", w.Rescan),
		Upgrade:          origin("upgradewallet", w.UpgradeWallet),
		Broadcast:        origin("walletbroadcast", bool(w.WalletBroadcast)),
		PersistMempool:   origin("persistmempool", bool(n.PersistMempool)),
		BlocksOnly:       n.BlocksOnly,
		SysPerms:         n.SysPerms,
		Prune:            n.Prune,
		MinRelayTxFee:    fee,
		HighFeeThreshold: walletcfg.DefaultHighTxFeePerKB,
	}, nil
}

// normalizeNetwork returns the common name of a network type used to create
// file paths. This allows differently versioned networks to use the same
// path.
func normalizeNetwork(network string) string {
	if strings.HasPrefix(network, "testnet") {
		return "testnet"
	}

	return network
}

// CleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
// This function is taken from https://github.com/decred/dcrd
func CleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string
		u, err := user.Current()
		if err == nil {
			homeDir = u.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}
