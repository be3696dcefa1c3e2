package enclave

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/anchorageoss/turnkeycrypto/manifest"
)

var pcrLabels = map[uint]string{
	0: "enclave image",
	1: "kernel and bootstrap",
	2: "application",
	3: "IAM role",
	4: "instance ID",
}

// FormatPCRValues renders PCRs in index order. Runs of all-zero PCRs above 4 are collapsed
// into a single line.
func FormatPCRValues(pcrs map[uint][]byte, indent string) string {
	indices := make([]uint, 0, len(pcrs))
	for idx, v := range pcrs {
		if len(v) > 0 {
			indices = append(indices, idx)
		}
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	var sb strings.Builder
	for i := 0; i < len(indices); i++ {
		idx := indices[i]
		value := pcrs[idx]
		if idx > 4 && isZero(value) {
			end := i
			for end+1 < len(indices) && indices[end+1] == indices[end]+1 && isZero(pcrs[indices[end+1]]) {
				end++
			}
			if end > i {
				fmt.Fprintf(&sb, "%sPCR[%d-%d]: all zeros\n", indent, idx, indices[end])
			} else {
				fmt.Fprintf(&sb, "%sPCR[%d]: all zeros\n", indent, idx)
			}
			i = end
			continue
		}
		line := fmt.Sprintf("%sPCR[%d]: %s", indent, idx, hex.EncodeToString(value))
		if label, ok := pcrLabels[idx]; ok {
			line += " (" + label + ")"
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// FormatManifest renders the manifest fields relevant to trusting its quorum key
func FormatManifest(m *manifest.Manifest) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Namespace: %s (nonce %d)\n", m.Namespace.Name, m.Namespace.Nonce)
	fmt.Fprintf(&sb, "  Quorum Key: %s\n", hex.EncodeToString(m.Namespace.QuorumKey))
	fmt.Fprintf(&sb, "Pivot: %s (restart %s)\n", hex.EncodeToString(m.Pivot.Hash[:]), m.Pivot.Restart)
	writeMembers(&sb, "Manifest Set", m.ManifestSet.Threshold, m.ManifestSet.Members)
	writeMembers(&sb, "Share Set", m.ShareSet.Threshold, m.ShareSet.Members)
	fmt.Fprintf(&sb, "Enclave (QoS commit %s):\n", m.Enclave.QosCommit)
	fmt.Fprintf(&sb, "%s", FormatPCRValues(map[uint][]byte{
		0: m.Enclave.Pcr0,
		1: m.Enclave.Pcr1,
		2: m.Enclave.Pcr2,
		3: m.Enclave.Pcr3,
	}, "  "))

	return sb.String()
}

func writeMembers(sb *strings.Builder, title string, threshold uint32, members []manifest.QuorumMember) {
	fmt.Fprintf(sb, "%s (threshold %d of %d):\n", title, threshold, len(members))
	for _, member := range members {
		pub := hex.EncodeToString(member.PubKey)
		if len(pub) > 16 {
			pub = pub[:16] + "..."
		}
		fmt.Fprintf(sb, "  %s (%s)\n", member.Alias, pub)
	}
}

// FormatResolution renders a resolved quorum key and the evidence behind it
func FormatResolution(r *Resolution) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Module ID: %s\n", r.ModuleID)
	fmt.Fprintf(&sb, "Manifest Hash: %s\n", r.ManifestHash)
	fmt.Fprintf(&sb, "Namespace: %s\n", r.Namespace)
	fmt.Fprintf(&sb, "Signing Key: %s\n", r.QuorumKey.Signing.Hex(false))
	fmt.Fprintf(&sb, "Encryption Key: %s\n", r.QuorumKey.Encryption.Hex(false))
	sb.WriteString("Attested PCRs:\n")
	sb.WriteString(FormatPCRValues(r.PCRs, "  "))
	for _, v := range r.PCRResults {
		status := "ok"
		if !v.Valid {
			status = "MISMATCH"
		}
		fmt.Fprintf(&sb, "  check PCR[%d] against %s: %s\n", v.Index, v.Source, status)
	}
	return sb.String()
}
