package types

// Version is the canonical project version.
// The CLI and the notification contract share this version.
const Version = "0.3.0"

// ContractVersion is the version of the card_read notification payload.
// Kept in lockstep with Version.
const ContractVersion = Version
