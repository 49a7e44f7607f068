package fileupload

// Props configure an Item.
type Props struct {
	// File is nil for an empty slot.
	File   *File
	Preset Preset

	// ViewOnly disables uploads and removal. nil means true.
	ViewOnly *bool

	AllowFileRemove bool
}

// IsViewOnly resolves the ViewOnly default.
func (p Props) IsViewOnly() bool {
	return p.ViewOnly == nil || *p.ViewOnly
}

// View lists the controls an Item shows.
type View struct {
	// ShowUploadLink offers an upload for an empty, editable slot.
	ShowUploadLink bool

	// ShowRadio offers selection of an existing file.
	ShowRadio bool

	// ShowStatus shows upload progress or an error.
	ShowStatus bool

	// ShowRemove offers removal of the file.
	ShowRemove bool
}

// Render computes the controls shown for p.
func Render(p Props) View {
	viewOnly := p.IsViewOnly()
	if p.File == nil {
		return View{ShowUploadLink: !viewOnly}
	}
	return View{
		ShowRadio:  true,
		ShowStatus: p.File.Error || p.File.Uploading(),
		ShowRemove: p.AllowFileRemove && !viewOnly,
	}
}
