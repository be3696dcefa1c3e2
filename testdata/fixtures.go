// Package testdata provides shared golden vectors for use across all test packages.
package testdata

// Point vectors
const (
	// LeadingZeroUncompressedKey is a valid P-256 point whose X coordinate starts with 0x00
	LeadingZeroUncompressedKey = "0400d2eb47be2006c29db5fe9941dd686d19ddeea85a0328894f08091f6b5be9b366c4872345594c12a7f7c47c62dd8074542934820fce5ee0ddc55d6d1d8dd312"

	// LeadingZeroCompressedKey is LeadingZeroUncompressedKey in compressed form
	LeadingZeroCompressedKey = "0200d2eb47be2006c29db5fe9941dd686d19ddeea85a0328894f08091f6b5be9b3"

	// OffCurveUncompressedKey differs from LeadingZeroUncompressedKey in the last bit of Y
	OffCurveUncompressedKey = "0400d2eb47be2006c29db5fe9941dd686d19ddeea85a0328894f08091f6b5be9b366c4872345594c12a7f7c47c62dd8074542934820fce5ee0ddc55d6d1d8dd313"
)

// NIST P-256 key pair (NOT FOR PRODUCTION USE)
const (
	NISTPrivateKey = "c9806898a0334916c860748880a541f093b579a9b1f32934d86c363c39800357"
	NISTPublicX    = "d0720dc691aa80096ba32fed1cb97c2b620690d06de0317b8618d5ce65eb728f"
	NISTPublicY    = "9681b517b1cda17d0d83d335d9c4a8a9a9b0b1b3c7106d8f3c72bc5093dc275f"
)

// Export bundle vectors
const (
	// EmbeddedPrivateKey is the client-side key export bundles are encrypted to
	EmbeddedPrivateKey = "ffc6090f14bcf260e5dfe63f45412e60a477bb905956d7cc90195b71c2a544b3"

	// EmbeddedPublicKey is the uncompressed public key of EmbeddedPrivateKey
	EmbeddedPublicKey = "04ead17ab58c90674535f27d6639368b254dceffcf629d4673be13aa231806de7e88d92a9bbda25089ad44488d828ed837e8674b78552e3ac74b9aa7e590e83b04"

	// EmbeddedPublicKeyCompressed is the compressed public key of EmbeddedPrivateKey
	EmbeddedPublicKeyCompressed = "02ead17ab58c90674535f27d6639368b254dceffcf629d4673be13aa231806de7e"

	OrganizationID = "f9a31c64-d604-42e4-9bef-a773096afad7"

	ExportedMnemonic = "leaf lady until indicate praise final route toast cake minimum insect unknown"
)
