// Package notation renders a decoded chart into an alphaTex-style text
// document for a notation engine. Output is deterministic: the same chart
// always yields byte-identical text, which is what makes re-imports
// comparable and overwrites safe.
package notation
