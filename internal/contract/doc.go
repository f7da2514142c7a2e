// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package contract defines the structured lifecycle event contract: the
// closed enumerations carried by events and the per-event required fields.
//
// Validate is the single gate every emitted payload passes before it reaches
// an event sink. A payload that fails validation is a programming error in the
// emitter, never a runtime condition.
package contract
