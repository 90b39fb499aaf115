// Package config loads and persists application settings. Settings live
// in a JSON file shared with other tools; loading substitutes defaults
// for anything missing or malformed and is never fatal, while saving
// merges only this application's sections and leaves unrelated keys
// untouched.
package config
