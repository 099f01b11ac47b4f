package version

// EmptyValue is the version of binaries built without setting it, such as
// test binaries.
const EmptyValue = "dev"

// Version is the release tag of davsync. It's set at build time with
// `-ldflags "-X github.com/sidkik/davsync/pkg/version.Version=<tag>"`.
var Version = EmptyValue
