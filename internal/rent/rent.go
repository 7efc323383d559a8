// Package rent computes rent-exemption thresholds for ledger accounts.
package rent

// AccountStorageOverhead is the per-account metadata size charged on top of data length.
const AccountStorageOverhead = 128

// Default rent parameters (mainnet values).
const (
	DefaultLamportsPerByteYear = 3480
	DefaultExemptionThreshold  = 2.0
)

// Rent holds the cluster rent parameters.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  float64
}

// Default returns the default rent parameters.
func Default() Rent {
	return Rent{
		LamportsPerByteYear: DefaultLamportsPerByteYear,
		ExemptionThreshold:  DefaultExemptionThreshold,
	}
}

// MinimumBalance returns the minimum lamports an account of dataLen bytes
// must hold to be exempt from rent collection.
func (r Rent) MinimumBalance(dataLen uint64) uint64 {
	bytes := dataLen + AccountStorageOverhead
	return uint64(float64(bytes*r.LamportsPerByteYear) * r.ExemptionThreshold)
}
