package walletcfg

import (
	"errors"
	"fmt"
)

var (
	// ErrMultiWalletOnly is returned when an option that rewrites a single
	// wallet is combined with more than one --wallet.
	ErrMultiWalletOnly = errors.New("is only allowed with a single wallet file")

	// ErrSysPermsWithWallet is returned when --sysperms is used while the
	// wallets are enabled.
	ErrSysPermsWithWallet = errors.New("--sysperms is not allowed in " +
		"combination with enabled wallet functionality")

	// ErrRescanPruned is returned when a rescan is requested on a pruned
	// node.
	ErrRescanPruned = errors.New("rescans are not possible in pruned " +
		"mode, you will need to use --reindex which will download the " +
		"whole blockchain again")
)

// Result is the outcome of a validation pass. Errors are fatal, Warnings are
// meant to be shown to the user and Infos only logged.
type Result struct {
	// Config is the input snapshot with every automatic override applied.
	Config Snapshot

	Errors   []error
	Warnings []string
	Infos    []string
}

// OK returns true if no fatal error was found.
func (r *Result) OK() bool {
	return len(r.Errors) == 0
}

// Err returns the fatal error, or nil.
func (r *Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

func (r *Result) infof(format string, args ...interface{}) {
	r.Infos = append(r.Infos, fmt.Sprintf(format, args...))
}

// softSet applies a set-if-unset override on opt and records what happened.
func (r *Result) softSet(opt *Bool, v bool, cause, name string) {
	updated, applied := opt.SoftSet(v)
	if !applied {
		r.infof("parameter interaction: %s -> keeping %s=%s set by %s",
			cause, name, opt, opt.Origin)
		return
	}

	*opt = updated
	r.infof("parameter interaction: %s -> setting %s=%s", cause, name, opt)
}

// Validate runs the wallet parameter interaction rules over cfg. The first
// incompatible combination stops validation; the relay fee warning is still
// collected in that case.
func Validate(cfg Snapshot) Result {
	res := Result{Config: cfg.copy()}
	c := &res.Config

	if c.DisableWallet {
		for _, w := range c.Wallets {
			res.infof("parameter interaction: --disablewallet -> "+
				"ignoring --wallet=%s", w)
		}
		return res
	}

	if err := applyRules(&res); err != nil {
		res.Errors = append(res.Errors, err)
	}

	if c.HighFeeThreshold > 0 && c.MinRelayTxFee > c.HighFeeThreshold {
		res.Warnings = append(res.Warnings, fmt.Sprintf("--minrelaytxfee "+
			"is set very high (%v/kB)! The wallet will avoid paying "+
			"less than the minimum relay fee.", c.MinRelayTxFee))
	}

	return res
}

func applyRules(res *Result) error {
	c := &res.Config
	multi := c.IsMultiWallet()

	if c.BlocksOnly {
		res.softSet(&c.Broadcast, false, "--blocksonly=1",
			"--walletbroadcast")
	}

	if c.Salvage.Value {
		// Only the private keys survive a salvage, so the
		// transactions have to be found again.
		res.softSet(&c.Rescan, true, "--salvagewallet=1", "--rescan")
		if multi {
			return fmt.Errorf("--salvagewallet %w", ErrMultiWalletOnly)
		}
	}

	if c.ZapMode != 0 {
		res.softSet(&c.PersistMempool, false, "--zapwallettxes enabled",
			"--persistmempool")

		if multi {
			return fmt.Errorf("--zapwallettxes %w", ErrMultiWalletOnly)
		}
		res.softSet(&c.Rescan, true, "--zapwallettxes enabled",
			"--rescan")
	}

	if multi && c.Upgrade.Value {
		return fmt.Errorf("--upgradewallet %w", ErrMultiWalletOnly)
	}

	if c.SysPerms {
		return ErrSysPermsWithWallet
	}

	if c.Prune > 0 && c.Rescan.Value {
		return ErrRescanPruned
	}

	return nil
}
