package dcrwalletmgr

import (
	"io"
	"net"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrwalletmgr/boltwallet"
	"github.com/decred/dcrwalletmgr/walletcfg"
	"github.com/decred/dcrwalletmgr/walletmgr"
	"github.com/decred/dcrwalletmgr/walletpath"
	"github.com/stretchr/testify/require"
)

func testSnapshot(wallets ...string) walletcfg.Snapshot {
	return walletcfg.Snapshot{
		Wallets:          wallets,
		Broadcast:        walletcfg.DefaultBool(true),
		PersistMempool:   walletcfg.DefaultBool(true),
		MinRelayTxFee:    10000,
		HighFeeThreshold: walletcfg.DefaultHighTxFeePerKB,
	}
}

func testSystem(t *testing.T, opts walletcfg.Snapshot) *walletSystem {
	t.Helper()

	sys, err := newWalletSystem(&Config{
		DBTimeout: time.Second,
		Automation: &walletcfg.Automation{
			MaintenanceInterval: 10 * time.Millisecond,
		},
	}, opts)
	require.NoError(t, err)
	return sys
}

func boltWallets(t *testing.T, sys *walletSystem) []*boltwallet.Wallet {
	t.Helper()

	var wallets []*boltwallet.Wallet
	for _, w := range sys.mgr.Registry().Wallets() {
		bw, ok := w.(*boltwallet.Wallet)
		require.True(t, ok)
		wallets = append(wallets, bw)
	}
	return wallets
}

func scrape(t *testing.T, sys *walletSystem) string {
	t.Helper()

	srv := httptest.NewServer(sys.metricsHandler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

// TestWalletSystemLifecycle runs two wallets through a full start and
// shutdown and checks that their data survives a restart.
func TestWalletSystemLifecycle(t *testing.T) {
	t.Parallel()

	dataDir := testAppDir(t)
	opts, err := interactParameters(testSnapshot("a", "b"))
	require.NoError(t, err)

	sys := testSystem(t, opts)
	require.NoError(t, sys.load(dataDir, testAppDir(t), &opts))
	require.NoError(t, sys.start())
	require.Equal(t, walletmgr.StateRunning, sys.mgr.State())

	wallets := boltWallets(t, sys)
	require.Len(t, wallets, 2)
	require.Equal(t, "a", wallets[0].Name())
	require.Equal(t, filepath.Join(dataDir, "a"), wallets[0].Path())
	require.NoError(t, wallets[0].PutTx(
		chainhash.HashH([]byte("tx")), []byte("raw"), nil,
	))

	require.Contains(t, scrape(t, sys), "dcrwalletmgr_wallets_loaded 2")

	// A closed quit channel makes serve return right away.
	quit := make(chan struct{})
	close(quit)
	require.NoError(t, sys.serve("", quit))

	sys.stop()
	require.Equal(t, walletmgr.StateUnloaded, sys.mgr.State())
	require.Zero(t, sys.mgr.Registry().Len())
	require.Contains(t, scrape(t, sys), "dcrwalletmgr_wallets_loaded 0")

	sys = testSystem(t, opts)
	require.NoError(t, sys.load(dataDir, "", &opts))
	defer sys.stop()

	n, err := boltWallets(t, sys)[0].TxCount()
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

// TestWalletSystemDisabled checks that a disabled wallet set goes through
// the lifecycle without touching the disk.
func TestWalletSystemDisabled(t *testing.T) {
	t.Parallel()

	dataDir := testAppDir(t)
	opts := testSnapshot("a")
	opts.DisableWallet = true

	sys := testSystem(t, opts)
	require.NoError(t, sys.load(dataDir, "", &opts))
	require.NoError(t, sys.start())
	sys.stop()

	entries, err := os.ReadDir(dataDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

// TestWalletSystemVerifyFailure checks that a broken wallet prevents any
// wallet from being loaded.
func TestWalletSystemVerifyFailure(t *testing.T) {
	t.Parallel()

	dataDir := testAppDir(t)
	junk := filepath.Join(dataDir, "junk")
	require.NoError(t, os.WriteFile(junk, []byte("junk"), 0600))

	opts := testSnapshot("a", "junk")
	sys := testSystem(t, opts)
	err := sys.load(dataDir, "", &opts)
	require.ErrorIs(t, err, boltwallet.ErrInvalidPath)
	require.Zero(t, sys.mgr.Registry().Len())
	require.NoDirExists(t, filepath.Join(dataDir, "a"))
}

// TestWalletSystemWalletDir checks both the explicit and the default wallet
// directory.
func TestWalletSystemWalletDir(t *testing.T) {
	t.Parallel()

	opts := testSnapshot("a")
	opts.WalletDir = "."
	opts.WalletDirSet = true
	err := testSystem(t, opts).load(testAppDir(t), "", &opts)
	require.ErrorIs(t, err, walletpath.ErrWalletDirRelative)

	// A configured directory is replaced by its canonical form.
	dataDir := testAppDir(t)
	linkDir := filepath.Join(testAppDir(t), "link")
	require.NoError(t, os.Symlink(dataDir, linkDir))

	opts = testSnapshot("a")
	opts.WalletDir = linkDir + string(filepath.Separator) + "."
	opts.WalletDirSet = true
	sys := testSystem(t, opts)
	require.NoError(t, sys.load(testAppDir(t), "", &opts))
	require.Equal(t, dataDir, opts.WalletDir)
	require.Equal(t, filepath.Join(dataDir, "a"),
		boltWallets(t, sys)[0].Path())
	sys.stop()

	// A wallets sub directory of the data directory is picked up.
	dataDir = testAppDir(t)
	walletDir := filepath.Join(dataDir, walletpath.DefaultWalletsSubDir)
	require.NoError(t, os.Mkdir(walletDir, 0700))

	opts = testSnapshot("a")
	sys = testSystem(t, opts)
	require.NoError(t, sys.load(dataDir, "", &opts))
	defer sys.stop()

	require.Equal(t, filepath.Join(walletDir, "a"),
		boltWallets(t, sys)[0].Path())
}

// TestWalletSystemLegacyWallet checks that the default wallet of a legacy
// installation is copied on first run.
func TestWalletSystemLegacyWallet(t *testing.T) {
	t.Parallel()

	legacyDir := testAppDir(t)
	legacy := boltwallet.New(boltwallet.Options{})
	w, err := legacy.LoadWallet(walletpath.Location{Path: legacyDir})
	require.NoError(t, err)
	require.NoError(t, w.(*boltwallet.Wallet).PutTx(
		chainhash.HashH([]byte("old")), []byte("raw"), nil,
	))
	require.NoError(t, w.Flush(true))

	dataDir := testAppDir(t)
	opts := testSnapshot()
	sys := testSystem(t, opts)
	require.NoError(t, sys.load(dataDir, legacyDir, &opts))
	defer sys.stop()

	require.FileExists(t, filepath.Join(dataDir, boltwallet.DBFilename))

	wallets := boltWallets(t, sys)
	require.Len(t, wallets, 1)
	require.Equal(t, dataDir, wallets[0].Path())

	n, err := wallets[0].TxCount()
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

// TestInteractParameters checks that rule violations abort startup and
// automatic overrides are applied.
func TestInteractParameters(t *testing.T) {
	t.Parallel()

	opts := testSnapshot("a", "b")
	opts.Salvage = walletcfg.UserBool(true)
	_, err := interactParameters(opts)
	require.ErrorIs(t, err, walletcfg.ErrMultiWalletOnly)

	opts = testSnapshot("a")
	opts.BlocksOnly = true
	out, err := interactParameters(opts)
	require.NoError(t, err)
	require.False(t, out.Broadcast.Value)
	require.Equal(t, walletcfg.OriginAuto, out.Broadcast.Origin)
}

// TestServeListenFailure checks that serve returns when the metrics server
// cannot listen.
func TestServeListenFailure(t *testing.T) {
	t.Parallel()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	sys := testSystem(t, testSnapshot())
	err = sys.serve(l.Addr().String(), make(chan struct{}))
	require.Error(t, err)
}
