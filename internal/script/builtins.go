package script

// Builtins returns a registry seeded with a small set of host operations.
// The full tool catalog lives with the callers that need it; these exist so
// the daemon is useful out of the box and the rendering path stays exercised.
func Builtins() *Registry {
	r := NewRegistry()

	ops := []Operation{
		{
			Name:        "host.version",
			Description: "Report the Premiere Pro application version.",
			Template:    `JSON.stringify({version: app.version})`,
		},
		{
			Name:        "project.open",
			Description: "Open a project file by absolute path.",
			Params: []Param{
				{Name: "path", Type: TypeString, Required: true, Description: "Absolute path to a .prproj file"},
			},
			Template: `app.openDocument({param:path}); JSON.stringify({opened: true, path: {param:path}})`,
		},
		{
			Name:        "project.import",
			Description: "Import a media file into the active project's root bin.",
			Params: []Param{
				{Name: "path", Type: TypeString, Required: true, Description: "Absolute path to the media file"},
				{Name: "suppressUI", Type: TypeBool, Required: false, Description: "Skip import dialogs (default true)"},
			},
			Template: `var suppress = {param:suppressUI}; if (suppress === undefined) { suppress = true; } app.project.importFiles([{param:path}], suppress, app.project.rootItem, false); JSON.stringify({imported: true, path: {param:path}})`,
		},
		{
			Name:        "sequence.create",
			Description: "Create a new sequence in the active project.",
			Params: []Param{
				{Name: "name", Type: TypeString, Required: true, Description: "Sequence name"},
			},
			Template: `var seq = app.project.createNewSequence({param:name}, {param:name}); JSON.stringify({sequence: seq.name})`,
		},
		{
			Name:        "sequence.addMarker",
			Description: "Add a marker to the active sequence.",
			Params: []Param{
				{Name: "seconds", Type: TypeNumber, Required: true, Description: "Marker position in seconds"},
				{Name: "note", Type: TypeString, Required: false, Description: "Marker comment"},
			},
			Template: `var m = app.project.activeSequence.markers.createMarker({param:seconds}); var note = {param:note}; if (note !== undefined) { m.comments = note; } JSON.stringify({marker: true, seconds: {param:seconds}})`,
		},
	}

	for _, op := range ops {
		// Registered from a literal slice; duplicates would be a programming error.
		if err := r.Register(op); err != nil {
			panic(err)
		}
	}
	return r
}
