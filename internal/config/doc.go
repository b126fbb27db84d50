// Package config defines the explicit configuration object for a bootstrap
// run.
//
// Configuration is assembled exactly once at startup, in fixed precedence:
//
//  1. Default() values
//  2. an optional thunderctl.yaml in the working directory (Load)
//  3. environment variables THUNDER_BOOTSTRAP_FAIL_FAST,
//     THUNDER_BOOTSTRAP_SKIP, THUNDER_BOOTSTRAP_ONLY (FromEnv)
//  4. command-line flags (bound in cmd/)
//
// The resulting Config is validated once (Validate) and then passed to every
// component by value. No component reads ambient environment state after
// startup; in particular the security-bypass variable handed to the server
// process is scoped to that child process and never enters this Config.
package config
