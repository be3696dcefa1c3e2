// Package manifest decodes QuorumOS manifests and extracts the quorum key they pin.
//
// A manifest is the Borsh-encoded policy an enclave booted with. Its SHA-256 digest is
// placed in the UserData field of the Nitro attestation document, so a manifest whose
// digest matches attested UserData tells the caller which quorum key the enclave holds.
// The quorum key's signing half is the key that signs export and import bundles.
//
//	decoded, err := manifest.DecodeBase64(manifestB64)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if !decoded.MatchesUserData(attestation.UserData) {
//		log.Fatal("manifest was not attested")
//	}
//	qk, err := decoded.Manifest.Namespace.QuorumKeys()
package manifest

import "fmt"

// RestartPolicy of the pivot binary, encoded as a u8
type RestartPolicy uint8

const (
	RestartPolicyNever RestartPolicy = iota
	RestartPolicyAlways
)

func (r RestartPolicy) String() string {
	switch r {
	case RestartPolicyNever:
		return "Never"
	case RestartPolicyAlways:
		return "Always"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(r))
	}
}

// MarshalText renders the policy name in JSON and YAML output
func (r RestartPolicy) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

type Hash256 [32]byte

// Namespace identifies the application and carries its quorum key
type Namespace struct {
	Name      string `borsh:"name"`
	Nonce     uint32 `borsh:"nonce"`
	QuorumKey []byte `borsh:"quorum_key"`
}

type NitroConfig struct {
	Pcr0               []byte `borsh:"pcr0"`
	Pcr1               []byte `borsh:"pcr1"`
	Pcr2               []byte `borsh:"pcr2"`
	Pcr3               []byte `borsh:"pcr3"`
	AwsRootCertificate []byte `borsh:"aws_root_certificate"`
	QosCommit          string `borsh:"qos_commit"`
}

type PivotConfig struct {
	Hash    Hash256       `borsh:"hash"`
	Restart RestartPolicy `borsh:"restart"`
	Args    []string      `borsh:"args"`
}

type QuorumMember struct {
	Alias  string `borsh:"alias"`
	PubKey []byte `borsh:"pub_key"`
}

type ManifestSet struct {
	Threshold uint32         `borsh:"threshold"`
	Members   []QuorumMember `borsh:"members"`
}

type ShareSet struct {
	Threshold uint32         `borsh:"threshold"`
	Members   []QuorumMember `borsh:"members"`
}

type MemberPubKey struct {
	PubKey []byte `borsh:"pub_key"`
}

type PatchSet struct {
	Threshold uint32         `borsh:"threshold"`
	Members   []MemberPubKey `borsh:"members"`
}

// Manifest field order is the Borsh wire order and must not change
type Manifest struct {
	Namespace   Namespace   `borsh:"namespace"`
	Pivot       PivotConfig `borsh:"pivot"`
	ManifestSet ManifestSet `borsh:"manifest_set"`
	ShareSet    ShareSet    `borsh:"share_set"`
	Enclave     NitroConfig `borsh:"enclave"`
	PatchSet    PatchSet    `borsh:"patch_set"`
}

type Approval struct {
	Signature []byte       `borsh:"signature"`
	Member    QuorumMember `borsh:"member"`
}

// ManifestEnvelope wraps the manifest with approval signatures
type ManifestEnvelope struct {
	Manifest             Manifest   `borsh:"manifest"`
	ManifestSetApprovals []Approval `borsh:"manifest_set_approvals"`
	ShareSetApprovals    []Approval `borsh:"share_set_approvals"`
}
