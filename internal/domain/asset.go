package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Well-known asset identifiers seeded by the initial migration.
const (
	AssetIDSOL  int64 = 1
	AssetIDUSDT int64 = 2

	// NativeDecimals is the precision of lamports.
	NativeDecimals int32 = 9
	// USDTMint is the USDT mint on Solana mainnet.
	USDTMint = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

// Asset is a depositable asset: the native coin or an SPL token.
type Asset struct {
	ID       int64
	Symbol   string
	Decimals int32
	Mint     string
}

// IsNative reports whether the asset is the chain's native coin.
func (a Asset) IsNative() bool {
	return a.Mint == ""
}

// FromMinor converts an integer amount of minor units to a decimal at asset precision.
func (a Asset) FromMinor(minor uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(minor), -a.Decimals)
}

// Format renders an amount with exactly Decimals fractional digits.
func (a Asset) Format(amount decimal.Decimal) string {
	return amount.StringFixed(a.Decimals)
}

// NativeAsset returns the SOL asset definition.
func NativeAsset() Asset {
	return Asset{ID: AssetIDSOL, Symbol: "SOL", Decimals: NativeDecimals}
}
