package service

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	costProbe  = "test"
	costBudget = time.Second
)

// Vault turns plaintext credentials into storable digests and verifies
// plaintexts against them. The hashing cost is calibrated once per process;
// peer processes may run with different costs, so Compare never depends on
// the local cost since bcrypt embeds the cost in the digest.
type Vault struct {
	cost int
}

// NewVault calibrates the hashing cost by hashing a fixed probe at
// increasing cost until a single hash exceeds one second of wall-clock
// time, then fixes that cost for the process lifetime. Expect the call to
// take a few seconds at startup.
func NewVault() *Vault {
	return &Vault{cost: calibrateCost(bcryptProbe, costBudget)}
}

// NewVaultWithCost skips calibration. Costs outside bcrypt's legal range
// are clamped.
func NewVaultWithCost(cost int) *Vault {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Vault{cost: cost}
}

// calibrateCost walks the cost upward from bcrypt's default and returns the
// first cost whose probe exceeds the budget. The walk is monotonic; it
// never revisits a lower cost.
func calibrateCost(probe func(cost int) time.Duration, budget time.Duration) int {
	cost := bcrypt.DefaultCost
	for cost < bcrypt.MaxCost && probe(cost) <= budget {
		cost++
	}
	return cost
}

func bcryptProbe(cost int) time.Duration {
	start := time.Now()
	_, _ = bcrypt.GenerateFromPassword([]byte(costProbe), cost)
	return time.Since(start)
}

// Cost returns the calibrated cost.
func (v *Vault) Cost() int { return v.cost }

// Hash derives a digest embedding the calibrated cost. Callers must have
// rejected under-length secrets already; the vault does not re-validate.
func (v *Vault) Hash(secret string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(secret), v.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Compare verifies a plaintext against a digest produced under any
// historical cost.
func (v *Vault) Compare(secret, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret)) == nil
}
