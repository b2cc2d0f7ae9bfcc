/*
Package config loads and writes the keeper configuration file.

The file has three sections and may be YAML, JSON or HCL, picked by
extension through the parser registry:

	keeper:
	  id: 8f2c7a3e-6c1b-4a55-9a57-2f0d6c9e1b10   # required, non-nil UUID
	  email: keeper@example.org                  # optional
	backup:
	  zip_file: ~/keeper/acearchive.zip
	  log_file: ~/keeper/keeper.log
	  log_verbose: false
	  concurrency: 8                             # 1..256
	api:
	  catalog_url: https://api.acearchive.lgbt/v0
	  checksum_url: https://api.acearchive.lgbt/v0/checksum
	  backups_url: https://api.acearchive.lgbt/v0/backups

The same file in HCL:

	keeper {
	  id    = "8f2c7a3e-6c1b-4a55-9a57-2f0d6c9e1b10"
	  email = env.KEEPER_EMAIL
	}
	backup {
	  zip_file = "~/keeper/acearchive.zip"
	}

Unset optional values are filled by ApplyDefaults. KEEPER_* environment
variables override file values through ApplyEnv, and paths are expanded
with ExpandPaths before use.
*/
package config
