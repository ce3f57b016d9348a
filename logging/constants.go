package logging

// These constants identify the services that log through their own sub-logger
const (
	// COMPILATION_SERVICE identifies the compilation package
	COMPILATION_SERVICE = "compilation"
	// REPLAY_SERVICE identifies the replay engine
	REPLAY_SERVICE = "replay"
	// STATE_SERVICE identifies the state fork manager
	STATE_SERVICE = "state"
	// EXECUTION_SERVICE identifies the chain executor
	EXECUTION_SERVICE = "execution"
	// CLI_SERVICE identifies the cmd package
	CLI_SERVICE = "cli"
)
