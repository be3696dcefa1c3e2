package cmd

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	nitroverifier "github.com/anchorageoss/awsnitroverifier"
)

// maxPCRIndex is the highest PCR a Nitro attestation document carries
const maxPCRIndex = 31

// ParsePCRs parses "index:hex" pairs separated by commas into PCR rules for
// enclave.BootProof. Each index may appear once.
//
// Example input: "0:f2479c809cbfa117cfa3f9a91c12faf602a8d8f5c06afd8d3c7d9f48c49fe048385802da593e6cc7c70c0b8c519625de,3:abc123"
func ParsePCRs(pcrSpec string) ([]nitroverifier.PCRRule, error) {
	if strings.TrimSpace(pcrSpec) == "" {
		return nil, nil
	}

	var rules []nitroverifier.PCRRule
	seen := make(map[uint]bool)
	for _, entry := range strings.Split(pcrSpec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		indexText, hexValue, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("invalid PCR specification '%s': expected format 'index:hex_value'", entry)
		}
		index, err := strconv.ParseUint(strings.TrimSpace(indexText), 10, 8)
		if err != nil || index > maxPCRIndex {
			return nil, fmt.Errorf("invalid PCR index '%s': must be 0-%d", indexText, maxPCRIndex)
		}
		if seen[uint(index)] {
			return nil, fmt.Errorf("duplicate PCR index %d", index)
		}
		seen[uint(index)] = true

		hexValue = strings.TrimSpace(hexValue)
		value, err := hex.DecodeString(hexValue)
		if err != nil || len(value) == 0 {
			return nil, fmt.Errorf("invalid PCR hex value '%s' for index %d", hexValue, index)
		}

		rules = append(rules, nitroverifier.PCRRule{Index: uint(index), Value: value})
	}
	return rules, nil
}
