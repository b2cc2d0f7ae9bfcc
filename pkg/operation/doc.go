/*
Package operation drives a single backup run from the catalog to the archive.

	+-------------+      +-------------+      +-------------+
	| ResolveBase | ---> |  Reconcile  | ---> |  Repackage  | ---> Report ---> Done
	+------+------+      +------+------+      +-------------+
	       |                    |
	   archive pkg      artifact + snapshot pkgs

🎯 Purpose:
- Decides whether the previous archive can be reused, skipped or must be set aside
- Fans artifact work out over a bounded worker pool
- Commits the new archive only once the working tree is complete

🔄 Flow:
1. Opens the previous archive and compares its manifest checksum with the server
2. Extracts it into a private working directory, or starts empty
3. Lists the catalog, relocates renamed artifacts and syncs each one concurrently
4. Prunes anything the catalog no longer explains and writes the manifest
5. Replaces the archive and reports the backup upstream

⚡ Failure model:
- Catalog, base resolution and repackaging failures end the run in StateFailed
- Per-file and per-artifact failures are counted in the Summary, never fatal
- The archive on disk is only replaced at Repackage, so a cancelled run leaves it intact
- A failed report is logged; the committed archive stays

🤝 Collaborators come in through Options as interfaces from the remote
package, and progress leaves through an Observer that can never stall a run.
*/
package operation
