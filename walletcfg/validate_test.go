package walletcfg

import (
	"testing"

	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/stretchr/testify/require"
)

func baseSnapshot(wallets ...string) Snapshot {
	return Snapshot{
		Wallets:          wallets,
		Broadcast:        DefaultBool(DefaultBroadcast),
		PersistMempool:   DefaultBool(DefaultPersistMempool),
		MinRelayTxFee:    dcrutil.Amount(1e4),
		HighFeeThreshold: DefaultHighTxFeePerKB,
	}
}

// TestValidateMultiWalletRejections checks that every single-wallet-only
// option is rejected on its own once more than one wallet is configured.
func TestValidateMultiWalletRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Snapshot)
		flag   string
	}{{
		name:   "salvage",
		modify: func(s *Snapshot) { s.Salvage = UserBool(true) },
		flag:   "--salvagewallet",
	}, {
		name:   "upgrade",
		modify: func(s *Snapshot) { s.Upgrade = UserBool(true) },
		flag:   "--upgradewallet",
	}, {
		name:   "zap mode 1",
		modify: func(s *Snapshot) { s.ZapMode = 1 },
		flag:   "--zapwallettxes",
	}, {
		name:   "zap mode 2",
		modify: func(s *Snapshot) { s.ZapMode = 2 },
		flag:   "--zapwallettxes",
	}}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			for _, wallets := range [][]string{
				{"a", "b"}, {"a", "b", "c"},
			} {
				cfg := baseSnapshot(wallets...)
				test.modify(&cfg)

				res := Validate(cfg)
				require.False(t, res.OK())
				require.Len(t, res.Errors, 1)
				require.ErrorIs(t, res.Err(), ErrMultiWalletOnly)
				require.Contains(t, res.Err().Error(), test.flag)
			}

			// The same option is fine with a single wallet.
			cfg := baseSnapshot("a")
			test.modify(&cfg)
			res := Validate(cfg)
			require.True(t, res.OK(), "unexpected error: %v",
				res.Err())
		})
	}
}

// TestValidateZapSingleWallet checks the soft overrides zap applies when a
// single wallet is configured.
func TestValidateZapSingleWallet(t *testing.T) {
	t.Parallel()

	for _, mode := range []int{1, 2} {
		cfg := baseSnapshot("a")
		cfg.ZapMode = mode

		res := Validate(cfg)
		require.True(t, res.OK())
		require.Equal(t, Bool{true, OriginAuto}, res.Config.Rescan)
		require.Equal(t, Bool{false, OriginAuto},
			res.Config.PersistMempool)

		// The input snapshot is left untouched.
		require.Equal(t, OriginUnset, cfg.Rescan.Origin)
		require.True(t, cfg.PersistMempool.Value)
	}
}

// TestValidateSoftOverrideKeepsUserValue makes sure an explicit user value is
// never replaced by an automatic override, while the skipped override is
// still reported.
func TestValidateSoftOverrideKeepsUserValue(t *testing.T) {
	t.Parallel()

	cfg := baseSnapshot()
	cfg.BlocksOnly = true
	cfg.Broadcast = UserBool(true)
	cfg.ZapMode = 1
	cfg.PersistMempool = UserBool(true)

	res := Validate(cfg)
	require.True(t, res.OK())
	require.Equal(t, UserBool(true), res.Config.Broadcast)
	require.Equal(t, UserBool(true), res.Config.PersistMempool)
	require.Equal(t, Bool{true, OriginAuto}, res.Config.Rescan)
	require.Len(t, res.Infos, 3)
	require.Contains(t, res.Infos[0], "keeping --walletbroadcast=1")
	require.Contains(t, res.Infos[1], "keeping --persistmempool=1")
	require.Contains(t, res.Infos[2], "setting --rescan=1")
}

func TestValidateBlocksOnly(t *testing.T) {
	t.Parallel()

	cfg := baseSnapshot("a", "b")
	cfg.BlocksOnly = true

	res := Validate(cfg)
	require.True(t, res.OK())
	require.Equal(t, Bool{false, OriginAuto}, res.Config.Broadcast)
}

func TestValidateSalvageForcesRescan(t *testing.T) {
	t.Parallel()

	cfg := baseSnapshot("a")
	cfg.Salvage = UserBool(true)

	res := Validate(cfg)
	require.True(t, res.OK())
	require.True(t, res.Config.Rescan.Value)

	// An explicit --rescan=0 wins.
	cfg.Rescan = UserBool(false)
	res = Validate(cfg)
	require.True(t, res.OK())
	require.False(t, res.Config.Rescan.Value)
}

// TestValidatePrunedRescan checks that a rescan on a pruned node is rejected
// regardless of the number of wallets, including rescans forced by salvage.
func TestValidatePrunedRescan(t *testing.T) {
	t.Parallel()

	for _, wallets := range [][]string{nil, {"a"}, {"a", "b"}} {
		cfg := baseSnapshot(wallets...)
		cfg.Prune = 550
		cfg.Rescan = UserBool(true)

		res := Validate(cfg)
		require.ErrorIs(t, res.Err(), ErrRescanPruned)
	}

	cfg := baseSnapshot("a")
	cfg.Prune = 550
	cfg.Salvage = UserBool(true)
	res := Validate(cfg)
	require.ErrorIs(t, res.Err(), ErrRescanPruned)

	cfg = baseSnapshot("a")
	cfg.Prune = 550
	res = Validate(cfg)
	require.True(t, res.OK())
}

func TestValidateSysPerms(t *testing.T) {
	t.Parallel()

	cfg := baseSnapshot()
	cfg.SysPerms = true
	res := Validate(cfg)
	require.ErrorIs(t, res.Err(), ErrSysPermsWithWallet)

	cfg.DisableWallet = true
	res = Validate(cfg)
	require.True(t, res.OK())
}

// TestValidateDisabledShortCircuits checks that disabling the wallets accepts
// any combination of the other options.
func TestValidateDisabledShortCircuits(t *testing.T) {
	t.Parallel()

	cfg := baseSnapshot("a", "b", "c")
	cfg.DisableWallet = true
	cfg.Salvage = UserBool(true)
	cfg.Upgrade = UserBool(true)
	cfg.ZapMode = 2
	cfg.SysPerms = true
	cfg.Prune = 1000
	cfg.Rescan = UserBool(true)
	cfg.BlocksOnly = true
	cfg.MinRelayTxFee = DefaultHighTxFeePerKB * 10

	res := Validate(cfg)
	require.True(t, res.OK())
	require.Empty(t, res.Warnings)
	require.Len(t, res.Infos, 3)
	require.Equal(t, cfg, res.Config)
}

func TestValidateHighRelayFee(t *testing.T) {
	t.Parallel()

	cfg := baseSnapshot("a")
	cfg.MinRelayTxFee = DefaultHighTxFeePerKB
	res := Validate(cfg)
	require.Empty(t, res.Warnings)

	cfg.MinRelayTxFee = DefaultHighTxFeePerKB + 1
	res = Validate(cfg)
	require.True(t, res.OK())
	require.Len(t, res.Warnings, 1)

	// The warning is still collected next to a fatal error.
	cfg.SysPerms = true
	res = Validate(cfg)
	require.False(t, res.OK())
	require.Len(t, res.Warnings, 1)
}

func TestBoolSoftSet(t *testing.T) {
	t.Parallel()

	b, ok := DefaultBool(true).SoftSet(false)
	require.True(t, ok)
	require.Equal(t, Bool{false, OriginAuto}, b)

	// Once set, later overrides are no-ops.
	b2, ok := b.SoftSet(true)
	require.False(t, ok)
	require.Equal(t, b, b2)

	b3, ok := UserBool(true).SoftSet(false)
	require.False(t, ok)
	require.Equal(t, UserBool(true), b3)
}

func TestBoolFlag(t *testing.T) {
	t.Parallel()

	var f BoolFlag
	require.NoError(t, f.UnmarshalFlag("1"))
	require.True(t, bool(f))
	require.NoError(t, f.UnmarshalFlag("false"))
	require.False(t, bool(f))
	require.Error(t, f.UnmarshalFlag("maybe"))

	s, err := BoolFlag(true).MarshalFlag()
	require.NoError(t, err)
	require.Equal(t, "true", s)
}
