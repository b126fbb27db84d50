// Package bootstrap implements the step-based resource provisioning engine
// for thunderctl.
//
// A bootstrap run discovers YAML step files, executes them strictly in
// filename order against a running Thunder server, and reports aggregate
// counters. Each step declares one or more resources; each resource is
// provisioned with a create-or-adopt sequence so the whole run can be
// executed repeatedly against the same server without failing on resources
// that already exist.
//
// # Architecture Overview
//
//	            ┌──────────────────────┐
//	            │ thunderctl bootstrap │ (CLI command)
//	            │  (cmd/bootstrap.go)  │
//	            └──────────┬───────────┘
//	                       │
//	            ┌──────────▼───────────┐
//	            │       Runner         │ (runner.go)
//	            └──────────┬───────────┘
//	                       │
//	      ┌────────────────┼────────────────┐
//	      │                │                │
//	┌─────▼──────┐  ┌──────▼──────┐  ┌──────▼──────┐
//	│ StepLoader │  │ provisioner │  │  Reporter   │
//	│ (loader.go)│  │(provision.go)│ │(reporter.go)│
//	└────────────┘  └──────┬──────┘  └─────────────┘
//	                       │
//	                ┌──────▼──────┐
//	                │ api.Client  │ (internal/api)
//	                └─────────────┘
//
// # Core Components
//
// StepLoader discovers and parses step files. Files are rendered through
// text/template with sprig functions at load time (using [[ ]] delimiters so
// they do not collide with run-time placeholders), unmarshalled from YAML,
// validated, and sorted lexicographically by filename. Numeric prefixes such
// as 01- and 02- are the ordering convention.
//
// The Runner executes steps sequentially, sharing a single RunContext across
// the run. It enforces per-step timeouts, applies skip/only filters, stops at
// the first failure when fail-fast is enabled, and aggregates the counters
// reported at the end: discovered, executed, succeeded, failed, skipped.
//
// The provisioner performs the create-or-adopt sequence for one resource:
//
//  1. Resolve {{ placeholder }} references in the create path and body
//     against identifiers stored by earlier resources.
//  2. POST the create request. 200/201 means created; the identifier is
//     extracted from the response and stored when the resource asks for it.
//  3. 409, or 400 with an error body that signals a duplicate, means the
//     resource already exists. The adopt lookup runs a GET, optionally
//     unwraps a list, matches the natural key, and stores the existing
//     identifier instead.
//  4. Any other status, and an unreachable server in particular, fails the
//     step with the offending status and response body in the error.
//
// The Reporter receives progress events and the final summary. The console
// implementation prints a per-step table and optionally saves the full
// summary as a JSON report file.
//
// # Step Files
//
// A step file is a YAML document:
//
//	name: default-resources
//	description: Root organization unit, admin user and role
//	resources:
//	  - id: root-org-unit
//	    kind: organization-unit
//	    create:
//	      path: /organization-units
//	      body:
//	        handle: root
//	        name: Root
//	    adopt:
//	      path: /organization-units
//	      listKey: organizationUnits
//	      matchField: handle
//	      matchValue: root
//	    conflictCodes: ["OU-60002"]
//	    store: orgUnitID
//	  - id: admin-user
//	    kind: user
//	    create:
//	      path: /users
//	      body:
//	        organizationUnit: "{{ orgUnitID }}"
//	        type: person
//
// Identifiers flow forward only: a resource may reference any identifier
// stored by an earlier resource in the same run, never a later one. The
// RunContext carrying them is created per run and discarded afterwards, so
// nothing leaks between runs.
//
// # Counters
//
// Discovered counts every loaded step file. Skipped counts steps excluded by
// the skip/only filters. Executed counts steps that actually ran; it splits
// into succeeded and failed. Steps never reached because fail-fast aborted
// the run appear in no counter. A run is successful exactly when failed is
// zero.
package bootstrap
