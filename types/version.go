package types

// Version is the canonical project version.
// The CLI and the provisioned schema descriptors report this version.
const Version = "0.1.0"
