// Package config provides configuration management for the somno analyzer.
package config

// Default configuration values for somno.
const (
	// DefaultListenAddr is the loopback address the daemon serves on.
	DefaultListenAddr = "127.0.0.1:7465"

	// DefaultMQTTAddr is the listen address of the embedded MQTT broker.
	DefaultMQTTAddr = ":1883"

	// DefaultHistoryLimit is the default number of history entries returned
	// when a client does not specify one.
	DefaultHistoryLimit = 50

	// DefaultAnomalyThreshold is the z-score above which a metric value is
	// flagged as anomalous.
	DefaultAnomalyThreshold = 2.0

	// DefaultTrendWindow is the moving-average window, in nights.
	DefaultTrendWindow = 7

	// DefaultGenerateSamples is the default synthetic dataset size.
	DefaultGenerateSamples = 1000

	// DefaultGenerateSeed keeps generated datasets reproducible.
	DefaultGenerateSeed = 42
)
