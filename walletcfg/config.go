package walletcfg

const (
	// DefaultMinRelayTxFee is the default minimum relay fee in coins/kB.
	DefaultMinRelayTxFee = 0.0001

	// DefaultBroadcast is the default of the walletbroadcast option.
	DefaultBroadcast = true

	// DefaultPersistMempool is the default of the persistmempool option.
	DefaultPersistMempool = true
)

// Wallet holds the options that decide which wallets get loaded and how they
// are brought up.
type Wallet struct {
	DisableWallet   bool     `long:"disablewallet" description:"Do not load any wallet"`
	Wallets         []string `long:"wallet" description:"Wallet to load. Can be specified multiple times to load multiple wallets. Relative paths are interpreted relative to --walletdir and will be created if they do not exist. For backwards compatibility this also accepts names of existing data files in --walletdir."`
	WalletDir       string   `long:"walletdir" description:"Directory holding the wallets (default: <datadir>/wallets if it exists, otherwise <datadir>)"`
	SalvageWallet   bool     `long:"salvagewallet" description:"Attempt to recover a corrupt wallet on startup"`
	ZapWalletTxes   int      `long:"zapwallettxes" description:"Delete all wallet transactions and only recover them through --rescan on startup (1 = keep tx meta data, 2 = drop tx meta data)" choice:"0" choice:"1" choice:"2"`
	Rescan          bool     `long:"rescan" description:"Rescan the block chain for missing wallet transactions on startup"`
	UpgradeWallet   bool     `long:"upgradewallet" description:"Upgrade wallets to the latest format on startup"`
	WalletBroadcast BoolFlag `long:"walletbroadcast" description:"Make the wallets broadcast transactions" optional:"yes" optional-value:"true"`
}

// Node holds the node level options that interact with the wallet options.
type Node struct {
	BlocksOnly     bool     `long:"blocksonly" description:"Only relay and accept blocks, no loose transactions"`
	Prune          uint64   `long:"prune" description:"Prune block storage down to the given height window (0 disables pruning)"`
	MinRelayTxFee  float64  `long:"minrelaytxfee" description:"The minimum transaction fee in coins/kB"`
	PersistMempool BoolFlag `long:"persistmempool" description:"Save the mempool on shutdown and load it on restart" optional:"yes" optional-value:"true"`
	SysPerms       bool     `long:"sysperms" description:"Create new files with system default permissions instead of umask 077"`
}

// DefaultWallet returns the default wallet options.
func DefaultWallet() *Wallet {
	return &Wallet{
		WalletBroadcast: DefaultBroadcast,
	}
}

// DefaultNode returns the default node options.
func DefaultNode() *Node {
	return &Node{
		MinRelayTxFee:  DefaultMinRelayTxFee,
		PersistMempool: DefaultPersistMempool,
	}
}
