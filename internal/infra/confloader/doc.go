// Package confloader loads SnapKeeper configuration with koanf.
//
// Sources, later ones overriding earlier ones:
//
//  1. Default values (the target struct as passed in)
//  2. YAML configuration file
//  3. Environment variables (SNAPKEEPER_ prefix)
//
// Watcher reports changes to the configuration file through fsnotify.
package confloader
