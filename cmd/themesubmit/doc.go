// Command themesubmit validates community backgrounds, visual styles and
// coverflow bundles, queues them locally, and submits the queue to the
// upstream content repository as a single GitHub pull request.
//
// Typical use:
//
//	themesubmit login
//	themesubmit add style ./night-sky.style --preview ./night-sky.png
//	themesubmit queue list
//	themesubmit submit --dry-run
//	themesubmit submit
package main
