package source

import (
	"fmt"

	"github.com/livinlefevreloca/biosync/internal/apperr"
)

// Config names the stored procedure and the mode arguments used to fetch
// unsynced punches and to mark them synced.
type Config struct {
	Procedure   string `toml:"procedure"`
	ModeParam   string `toml:"mode_param"`
	FetchMode   string `toml:"fetch_mode"`
	UpdateMode  string `toml:"update_mode"`
	TxnIDsParam string `toml:"txn_ids_param"`

	// Joins transaction IDs into the single @txnIds argument
	TxnIDSeparator string `toml:"txn_id_separator"`
}

// DefaultConfig returns the procedure contract of the attendance database
func DefaultConfig() Config {
	return Config{
		Procedure:      "uspManageBioPunchesData",
		ModeParam:      "action",
		FetchMode:      "getBioPunchesData",
		UpdateMode:     "UpdateBioSyncData",
		TxnIDsParam:    "txnIds",
		TxnIDSeparator: ",",
	}
}

// Validate checks that every procedure name and argument is set
func (c Config) Validate() error {
	fields := map[string]string{
		"procedure":        c.Procedure,
		"mode_param":       c.ModeParam,
		"fetch_mode":       c.FetchMode,
		"update_mode":      c.UpdateMode,
		"txn_ids_param":    c.TxnIDsParam,
		"txn_id_separator": c.TxnIDSeparator,
	}
	for name, value := range fields {
		if value == "" {
			return fmt.Errorf("%w: source %s must be set", apperr.ErrConfig, name)
		}
	}
	return nil
}
