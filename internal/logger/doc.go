// Package logger wraps zap with a process-wide sugared console logger and
// context helpers (ToContext/FromContext/WithName/WithKV).
//
// Services take a context, decorate it with their name or request scoped
// key-value pairs and log through it, so every line carries its origin.
package logger
