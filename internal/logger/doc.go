// Package logger provides the leveled logger used across hexpi.
//
// Each entry carries a timestamp, a level, an optional source (for example
// "coordinator" or "worker-2") and a formatted message:
//
//	[2026-01-02 15:04:05.000] [INFO] [worker-2] digits computed so far: 1024
//
// # Basic Usage
//
//	logger.Info("", "hexpi started")
//	logger.Info("worker-0", "shard %d..%d", start, end)
//
//	l := logger.New(os.Stderr, logger.LevelDebug)
//	l.Debug("coordinator", "pause tick")
//
// Levels can be read from configuration with ParseLevel.
//
// All operations are protected by a mutex and safe for concurrent use.
package logger
