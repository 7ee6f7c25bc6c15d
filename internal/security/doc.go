// Package security derives the read-only posture report exposed by
// goGate.Engine.SecurityReport from engine configuration.
package security
