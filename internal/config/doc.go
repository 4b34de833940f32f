// Package config defines the format-agnostic sweep model and the Loader
// interface that produces it.
//
// The `config.Model` is the single source of truth for the `grid`,
// `registry` and `executor` stages. Concrete loaders, such as the HCL one,
// live in separate packages.
package config
