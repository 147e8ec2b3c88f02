// Package prompts contains the instruction text sent to the model and
// the canned user-facing fallbacks for degraded conditions.
//
// Prompt text is Go code rather than config files because it is program
// logic: it interpolates runtime values, is embedded at compile time,
// and is validated by tests. Each prompt gets an exported constant or a
// function that accepts the dynamic parts and returns the full string.
package prompts
