package conventions

import "path/filepath"

const (
	// DefaultDataDir is the default peebo data directory name (relative to home).
	DefaultDataDir = ".peebo"
	// DBFile is the sqlite database filename.
	DBFile = "peebo.db"
	// ApplicantFile is the applicant profile filename.
	ApplicantFile = "applicant.yaml"
	// EnvFile is the optional dotenv filename loaded at startup.
	EnvFile = ".env"
	// ScreenshotsDir is the subdirectory for captured screenshots.
	ScreenshotsDir = "screenshots"

	// DefaultListenAddr is the address the local server listens on.
	DefaultListenAddr = "127.0.0.1:5050"
	// ChannelPath is the HTTP path of the command channel websocket.
	ChannelPath = "/ws"
	// DefaultChromeURL is the default Chrome remote debugging endpoint.
	DefaultChromeURL = "ws://127.0.0.1:9222"
	// BlankPage is the page the primary tab is reset to on cleanup.
	BlankPage = "about:blank"
)

// DBPath returns the sqlite database path inside a data directory.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, DBFile)
}

// ApplicantPath returns the applicant profile path inside a data directory.
func ApplicantPath(dataDir string) string {
	return filepath.Join(dataDir, ApplicantFile)
}

// ScreenshotPath returns the path for a named screenshot inside a data directory.
func ScreenshotPath(dataDir, name string) string {
	return filepath.Join(dataDir, ScreenshotsDir, name+".png")
}

// ChannelURL returns the websocket URL of the command channel for a listen address.
func ChannelURL(listenAddr string) string {
	return "ws://" + listenAddr + ChannelPath
}
