// Package config loads search defaults from a YAML, HCL or JSON file.
//
//	            +-------------+
//	            |   Config    |
//	            | (Defaults)  |
//	            +------+------+
//	                   |
//	    +--------------+--------------+
//	    |              |              |
//	+---+----+    +----+---+    +-----+--+
//	|  YAML  |    |  HCL   |    |  JSON  |
//	| Parser |    | Parser |    | Parser |
//	+--------+    +--------+    +--------+
//
// 🎯 Purpose:
// - Lets users keep their name list, destination and exclusions in a file
// - Picks the parser from the file extension
// - Fills defaults and rejects invalid values
//
// ⚡ Key Responsibilities:
// - Unknown keys are errors in every format
// - Relative paths are resolved against the config file's directory
// - exclude_system_folders defaults to true
//
// 🔍 Example (YAML):
//
//	names_file: names.txt
//	destination: /Users/u/found
//	exclude_system_folders: true
//	excludes:
//	  - "**/node_modules"
//	collision: rename
//
// 🔍 Example (HCL):
//
//	names_file  = "names.txt"
//	destination = "/Users/u/found"
//	roots       = ["/Users/u", "/Volumes/Backup"]
package config
