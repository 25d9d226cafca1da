// Package mock provides deterministic test doubles for the ai package
// interfaces. Mock embedders derive vectors from an FNV hash of the input
// text, so identical text always embeds identically across test runs.
package mock
