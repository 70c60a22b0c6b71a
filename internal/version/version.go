package version

// Build information set by ldflags
var (
	Version = "dev"     // -X github.com/caltechlibrary/cascflow/internal/version.Version
	Commit  = "unknown" // -X github.com/caltechlibrary/cascflow/internal/version.Commit
	Date    = "unknown" // -X github.com/caltechlibrary/cascflow/internal/version.Date
)
