package postgres

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Token amounts are stored as NUMERIC(78,0) and moved across the wire as
// decimal strings; 78 digits covers the full uint256 range.

// bigArg converts a big integer to a query argument, passing NULL for nil.
func bigArg(x *big.Int) any {
	if x == nil {
		return nil
	}
	return x.String()
}

// parseBig parses a NUMERIC column selected as ::text.
func parseBig(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("postgres: malformed numeric %q", s)
	}
	return v, nil
}

// parseBigPtr is parseBig for nullable columns.
func parseBigPtr(s *string) (*big.Int, error) {
	if s == nil {
		return nil, nil
	}
	return parseBig(*s)
}

// addrArg normalizes an address for storage. Addresses are stored lowercased
// so equality filters never depend on checksum casing.
func addrArg(a common.Address) string {
	return strings.ToLower(a.Hex())
}
