package gui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"github.com/kadvsk2006/Automated-Resume-Screening/internal/agent"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/config"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/export"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/ingestion"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/models"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/selection"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/view"
)

// Downloader fetches original resume files from the screening service
type Downloader interface {
	Download(ctx context.Context, filename string) (io.ReadCloser, string, error)
}

// App represents the main GUI application
type App struct {
	fyneApp    fyne.App
	mainWindow fyne.Window
	config     *config.Config
	screener   *agent.Screener
	downloader Downloader
	files      *ingestion.FileHandler
	log        *zap.Logger
	cancelFunc context.CancelFunc

	// UI Components
	selectionLabel *widget.Label
	selectionList  *widget.List
	jobDescText    *widget.Entry
	includeCSV     *widget.Check
	rankBtn        *widget.Button
	cancelBtn      *widget.Button
	progressBar    *widget.ProgressBar
	progressLabel  *widget.Label
	noticeLabel    *widget.Label
	summaryLabel   *widget.Label
	uploadedCard   *widget.Card
	databaseCard   *widget.Card
	uploadedTable  *widget.Table
	databaseTable  *widget.Table
	exportCSVBtn   *widget.Button
	exportXLSXBtn  *widget.Button

	selected []string
	uploaded view.Section
	database view.Section
}

// NewApp creates a new GUI application
func NewApp(cfg *config.Config, screener *agent.Screener, downloader Downloader, log *zap.Logger) *App {
	return newApp(app.New(), cfg, screener, downloader, log)
}

func newApp(fyneApp fyne.App, cfg *config.Config, screener *agent.Screener, downloader Downloader, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	w := fyneApp.NewWindow("Resume Screening")
	w.Resize(fyne.NewSize(1100, 800))

	a := &App{
		fyneApp:    fyneApp,
		mainWindow: w,
		config:     cfg,
		screener:   screener,
		downloader: downloader,
		files:      ingestion.NewFileHandler(log.Named("files")),
		log:        log,
	}

	a.setupUI()

	screener.Selection.OnChange(func(count int) {
		fyne.Do(a.refreshSelection)
	})
	screener.SetProgressCallback(func(current, total int, message string) {
		fyne.Do(func() {
			a.progressBar.SetValue(float64(current) / float64(total))
			a.progressLabel.SetText(message)
		})
	})
	w.SetOnDropped(a.handleDrop)

	return a
}

// Run starts the GUI application
func (a *App) Run() {
	a.mainWindow.ShowAndRun()
}

// setupUI initializes all UI components
func (a *App) setupUI() {
	tabs := container.NewAppTabs(
		container.NewTabItem("Screen Resumes", a.createScreenTab()),
		container.NewTabItem("Settings", a.createSettingsTab()),
	)

	a.mainWindow.SetContent(tabs)
}

// createScreenTab creates the main screening tab
func (a *App) createScreenTab() fyne.CanvasObject {
	// Selection section
	a.selectionLabel = widget.NewLabel(selection.CountLabel(0))
	a.selectionList = widget.NewList(
		func() int {
			return len(a.selected)
		},
		func() fyne.CanvasObject {
			return container.NewBorder(nil, nil, nil, widget.NewButton("Remove", nil), widget.NewLabel("Template"))
		},
		func(id widget.ListItemID, item fyne.CanvasObject) {
			row := item.(*fyne.Container)
			row.Objects[0].(*widget.Label).SetText(a.selected[id])
			row.Objects[1].(*widget.Button).OnTapped = func() {
				if err := a.screener.Selection.Remove(id); err != nil {
					a.showNotice(err.Error(), true)
				}
			}
		},
	)

	chooseBtn := widget.NewButton("Choose File...", a.handleChooseFile)
	folderBtn := widget.NewButton("Add Folder...", a.handleChooseFolder)
	gmailBtn := widget.NewButton("Import from Gmail...", a.handleGmailImport)
	clearBtn := widget.NewButton("Clear", a.screener.Selection.Clear)

	selectionScroll := container.NewVScroll(a.selectionList)
	selectionScroll.SetMinSize(fyne.NewSize(400, 120))

	selectionSection := container.NewVBox(
		widget.NewLabel("Resumes (drop files onto the window or choose them)"),
		container.NewHBox(chooseBtn, folderBtn, gmailBtn, clearBtn),
		a.selectionLabel,
		selectionScroll,
	)

	// Job description section
	a.jobDescText = widget.NewMultiLineEntry()
	a.jobDescText.SetPlaceHolder("Paste the job description (minimum 50 characters)...")
	a.jobDescText.SetMinRowsVisible(6)
	a.jobDescText.Wrapping = fyne.TextWrapWord

	a.includeCSV = widget.NewCheck("Include database candidates", nil)
	a.includeCSV.SetChecked(a.config.IncludeCSV)

	jobSection := container.NewVBox(
		widget.NewLabel("Job Description"),
		a.jobDescText,
		a.includeCSV,
	)

	// Progress section
	a.progressBar = widget.NewProgressBar()
	a.progressLabel = widget.NewLabel("Ready")
	a.noticeLabel = widget.NewLabel("")
	a.noticeLabel.Wrapping = fyne.TextWrapWord
	a.noticeLabel.Hide()
	a.rankBtn = widget.NewButton("Rank Candidates", a.handleRank)
	a.cancelBtn = widget.NewButton("Cancel", a.handleCancel)
	a.cancelBtn.Disable()

	progressSection := container.NewVBox(
		a.noticeLabel,
		a.progressLabel,
		a.progressBar,
		container.NewHBox(a.rankBtn, a.cancelBtn),
	)

	// Results section
	a.uploadedTable = a.newResultsTable(func() view.Section { return a.uploaded })
	a.databaseTable = a.newResultsTable(func() view.Section { return a.database })
	a.uploadedCard = widget.NewCard("Uploaded Resumes", "", scrolled(a.uploadedTable))
	a.databaseCard = widget.NewCard("Database Matches", "", scrolled(a.databaseTable))
	a.uploadedCard.Hide()
	a.databaseCard.Hide()

	a.summaryLabel = widget.NewLabel("")
	a.exportCSVBtn = widget.NewButton("Export CSV", a.handleExportCSV)
	a.exportXLSXBtn = widget.NewButton("Export to Excel", a.handleExportXLSX)
	a.exportCSVBtn.Disable()
	a.exportXLSXBtn.Disable()

	resultsSection := container.NewVBox(
		widget.NewLabel("Results"),
		a.summaryLabel,
		a.uploadedCard,
		a.databaseCard,
		container.NewHBox(a.exportCSVBtn, a.exportXLSXBtn),
	)

	return container.NewVScroll(
		container.NewVBox(
			selectionSection,
			widget.NewSeparator(),
			jobSection,
			widget.NewSeparator(),
			progressSection,
			widget.NewSeparator(),
			resultsSection,
		),
	)
}

var resultHeaders = []string{"Rank", "Candidate", "Source", "Match", "Skills", "Actions"}

func (a *App) newResultsTable(section func() view.Section) *widget.Table {
	table := widget.NewTable(
		func() (int, int) {
			return len(section().Rows) + 1, len(resultHeaders) // +1 for header
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("Template")
		},
		func(id widget.TableCellID, cell fyne.CanvasObject) {
			label := cell.(*widget.Label)
			if id.Row == 0 {
				label.SetText(resultHeaders[id.Col])
				label.TextStyle = fyne.TextStyle{Bold: true}
				return
			}
			label.TextStyle = fyne.TextStyle{}
			rows := section().Rows
			if id.Row-1 < len(rows) {
				label.SetText(cellText(rows[id.Row-1], id.Col))
			}
		},
	)
	table.OnSelected = func(id widget.TableCellID) {
		table.UnselectAll()
		rows := section().Rows
		if id.Row == 0 || id.Row-1 >= len(rows) {
			return
		}
		a.showDetails(rows[id.Row-1])
	}

	widths := []float32{60, 220, 100, 90, 300, 130}
	for col, width := range widths {
		table.SetColumnWidth(col, width)
	}
	return table
}

// cellText renders one table cell of a row
func cellText(row view.Row, col int) string {
	switch col {
	case 0:
		return row.RankText
	case 1:
		return row.Name
	case 2:
		return row.OriginLabel
	case 3:
		return fmt.Sprintf("%s (%s)", row.ScoreText, row.Tier)
	case 4:
		if !row.HasSkills() {
			return "No Skills"
		}
		texts := make([]string, len(row.Skills))
		for i, badge := range row.Skills {
			texts[i] = badge.Text
		}
		return strings.Join(texts, ", ")
	case 5:
		if !row.HasActions() {
			return "No actions"
		}
		if row.CanDownload() {
			return "Details / Download"
		}
		return "Details"
	}
	return ""
}

func scrolled(table *widget.Table) fyne.CanvasObject {
	scroll := container.NewScroll(table)
	scroll.SetMinSize(fyne.NewSize(900, 220))
	return scroll
}

// createSettingsTab creates the settings tab
func (a *App) createSettingsTab() fyne.CanvasObject {
	serverEntry := widget.NewEntry()
	serverEntry.SetText(a.config.ServerURL)

	timeoutEntry := widget.NewEntry()
	timeoutEntry.SetText(a.config.RequestTimeout)

	gmailCredsEntry := widget.NewEntry()
	gmailCredsEntry.SetText(a.config.GmailCredentialsPath)

	gmailTokenEntry := widget.NewEntry()
	gmailTokenEntry.SetText(a.config.GmailTokenPath)

	exportDirEntry := widget.NewEntry()
	exportDirEntry.SetText(a.config.ExportDir)

	gmailCredsBtn := widget.NewButton("Browse...", func() {
		dialog.ShowFileOpen(func(uc fyne.URIReadCloser, err error) {
			if err == nil && uc != nil {
				gmailCredsEntry.SetText(uc.URI().Path())
				uc.Close()
			}
		}, a.mainWindow)
	})

	form := widget.NewForm(
		widget.NewFormItem("Screening Server URL", serverEntry),
		widget.NewFormItem("Request Timeout", timeoutEntry),
		widget.NewFormItem("Gmail Credentials", container.NewBorder(nil, nil, nil, gmailCredsBtn, gmailCredsEntry)),
		widget.NewFormItem("Gmail Token File", gmailTokenEntry),
		widget.NewFormItem("Export Directory", exportDirEntry),
	)

	collect := func() *config.Config {
		cfg := *a.config
		cfg.ServerURL = strings.TrimSpace(serverEntry.Text)
		cfg.RequestTimeout = strings.TrimSpace(timeoutEntry.Text)
		cfg.GmailCredentialsPath = strings.TrimSpace(gmailCredsEntry.Text)
		cfg.GmailTokenPath = strings.TrimSpace(gmailTokenEntry.Text)
		cfg.ExportDir = strings.TrimSpace(exportDirEntry.Text)
		cfg.IncludeCSV = a.includeCSV.Checked
		return &cfg
	}

	saveBtn := widget.NewButton("Save Settings", func() {
		cfg := collect()
		if err := cfg.Validate(); err != nil {
			dialog.ShowError(fmt.Errorf("validation failed: %w", err), a.mainWindow)
			return
		}
		if err := cfg.Save(); err != nil {
			dialog.ShowError(err, a.mainWindow)
			return
		}
		*a.config = *cfg

		dialog.ShowInformation("Success", "Settings saved. Restart to use a new server URL or timeout.", a.mainWindow)
	})

	testBtn := widget.NewButton("Validate", func() {
		if err := collect().Validate(); err != nil {
			dialog.ShowError(fmt.Errorf("validation failed: %w", err), a.mainWindow)
			return
		}
		dialog.ShowInformation("Success", "Configuration is valid", a.mainWindow)
	})

	return container.NewVBox(
		form,
		container.NewHBox(saveBtn, testBtn),
	)
}

// refreshSelection redraws the selection counter and list
func (a *App) refreshSelection() {
	files := a.screener.Selection.Files()
	a.selected = make([]string, len(files))
	for i, f := range files {
		a.selected[i] = f.Filename
	}
	a.selectionLabel.SetText(selection.CountLabel(len(files)))
	a.selectionList.Refresh()
}

// refreshResults rebuilds both tables from the held result set
func (a *App) refreshResults() {
	a.uploaded, a.database = a.screener.Sections()

	setVisible(a.uploadedCard, a.uploaded.Visible)
	setVisible(a.databaseCard, a.database.Visible)
	a.uploadedTable.Refresh()
	a.databaseTable.Refresh()

	summary, ok := a.screener.Session().Summary()
	if !ok {
		a.summaryLabel.SetText("")
		a.exportCSVBtn.Disable()
		a.exportXLSXBtn.Disable()
		return
	}

	text := fmt.Sprintf("%d uploaded, %d database candidate(s)", summary.Uploaded, summary.Database)
	if summary.ProcessingTimeMs > 0 {
		text += fmt.Sprintf(", server time %.1f ms", summary.ProcessingTimeMs)
	}
	if len(summary.DuplicateNames) > 0 {
		text += ". Duplicate filenames: " + strings.Join(summary.DuplicateNames, ", ")
	}
	a.summaryLabel.SetText(text)

	if a.screener.Session().Len() > 0 {
		a.exportCSVBtn.Enable()
		a.exportXLSXBtn.Enable()
	} else {
		a.exportCSVBtn.Disable()
		a.exportXLSXBtn.Disable()
	}
}

func setVisible(obj fyne.CanvasObject, visible bool) {
	if visible {
		obj.Show()
	} else {
		obj.Hide()
	}
}

func (a *App) showNotice(text string, isError bool) {
	if text == "" {
		a.noticeLabel.Hide()
		return
	}
	a.noticeLabel.SetText(text)
	a.noticeLabel.Importance = widget.MediumImportance
	if isError {
		a.noticeLabel.Importance = widget.DangerImportance
	}
	a.noticeLabel.Show()
	a.noticeLabel.Refresh()
}

// handleChooseFile adds one file picked in the open dialog
func (a *App) handleChooseFile() {
	dialog.ShowFileOpen(func(uc fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.mainWindow)
			return
		}
		if uc == nil {
			return // User canceled
		}
		defer uc.Close()

		pf, err := ingestion.ReadUploaded(uc.URI().Name(), uc)
		if err != nil {
			a.showNotice(err.Error(), true)
			return
		}
		a.screener.Selection.Add(pf)
	}, a.mainWindow)
}

// handleChooseFolder adds every resume in a folder
func (a *App) handleChooseFolder() {
	dialog.ShowFolderOpen(func(lu fyne.ListableURI, err error) {
		if err != nil {
			dialog.ShowError(err, a.mainWindow)
			return
		}
		if lu == nil {
			return
		}
		a.loadPaths(lu.Path())
	}, a.mainWindow)
}

// handleDrop adds files dropped onto the window
func (a *App) handleDrop(_ fyne.Position, uris []fyne.URI) {
	paths := make([]string, 0, len(uris))
	for _, u := range uris {
		if u.Scheme() == "file" {
			paths = append(paths, u.Path())
		}
	}
	if len(paths) > 0 {
		a.loadPaths(paths...)
	}
}

func (a *App) loadPaths(paths ...string) {
	go func() {
		files, err := a.files.LoadPaths(context.Background(), paths...)
		if err != nil {
			fyne.Do(func() { a.showNotice(err.Error(), true) })
			return
		}
		a.screener.Selection.Add(files...)
	}()
}

// handleGmailImport adds resume attachments of matching emails
func (a *App) handleGmailImport() {
	if a.config.GmailCredentialsPath == "" {
		dialog.ShowError(errors.New("gmail credentials are not configured. Please set them in Settings"), a.mainWindow)
		return
	}

	subjectEntry := widget.NewEntry()
	subjectEntry.SetPlaceHolder("e.g., Job Application")

	dialog.ShowForm("Import from Gmail", "Import", "Cancel",
		[]*widget.FormItem{widget.NewFormItem("Email Subject", subjectEntry)},
		func(ok bool) {
			if !ok || strings.TrimSpace(subjectEntry.Text) == "" {
				return
			}
			a.importFromGmail(strings.TrimSpace(subjectEntry.Text))
		}, a.mainWindow)
}

func (a *App) importFromGmail(subject string) {
	progressDialog := dialog.NewCustomWithoutButtons("Gmail",
		widget.NewLabel("Fetching attachments from Gmail..."),
		a.mainWindow)
	progressDialog.Show()

	go func() {
		ctx := context.Background()
		source, err := ingestion.NewGmailSource(ctx, a.config.GmailCredentialsPath, a.config.GmailTokenPath, a.askAuthCode, a.log.Named("gmail"))
		if err == nil {
			var files []models.PendingFile
			files, err = source.FetchAttachments(ctx, ingestion.SubjectQuery(subject))
			if err == nil {
				a.screener.Selection.Add(files...)
			}
		}

		fyne.Do(func() {
			progressDialog.Hide()
			if err != nil {
				dialog.ShowError(fmt.Errorf("gmail import failed: %w", err), a.mainWindow)
			}
		})
	}()
}

// askAuthCode runs on a background goroutine and blocks until the user
// pastes the authorization code into a dialog
func (a *App) askAuthCode(authURL string) (string, error) {
	type answer struct {
		code string
		ok   bool
	}
	answers := make(chan answer, 1)

	fyne.Do(func() {
		a.fyneApp.Clipboard().SetContent(authURL)
		codeEntry := widget.NewEntry()
		dialog.ShowForm("Authorize Gmail", "Continue", "Cancel",
			[]*widget.FormItem{
				widget.NewFormItem("", widget.NewLabel("The authorization URL was copied to the clipboard.\nOpen it in a browser and paste the code below.")),
				widget.NewFormItem("Code", codeEntry),
			},
			func(ok bool) {
				answers <- answer{code: codeEntry.Text, ok: ok}
			}, a.mainWindow)
	})

	got := <-answers
	if !got.ok || strings.TrimSpace(got.code) == "" {
		return "", errors.New("authorization canceled")
	}
	return got.code, nil
}

// handleRank runs one screening run in the background
func (a *App) handleRank() {
	jd := a.jobDescText.Text
	if err := a.screener.Validate(jd); err != nil {
		a.showNotice(view.NoticeJobDescriptionTooShort, true)
		return
	}
	a.showNotice("", false)

	a.rankBtn.Disable()
	a.cancelBtn.Enable()
	a.progressBar.SetValue(0)

	ctx, cancel := context.WithCancel(context.Background())
	a.cancelFunc = cancel
	includeCSV := a.includeCSV.Checked

	go func() {
		defer cancel()
		summary, err := a.screener.Screen(ctx, jd, includeCSV)

		fyne.Do(func() {
			a.rankBtn.Enable()
			a.cancelBtn.Disable()

			switch {
			case err == nil:
			case errors.Is(err, context.Canceled):
				a.progressLabel.SetText("Screening canceled")
				return
			case errors.Is(err, agent.ErrSubmissionInFlight):
				a.showNotice(view.NoticeSubmissionInFlight, true)
				return
			default:
				a.progressLabel.SetText("Screening failed")
				a.showNotice(view.SubmissionNotice(err), true)
				return
			}

			a.refreshResults()
			a.fyneApp.SendNotification(&fyne.Notification{
				Title:   "Screening Complete",
				Content: fmt.Sprintf("Ranked %d candidate(s)", summary.Uploaded+summary.Database),
			})
		})
	}()
}

// handleCancel handles cancellation of a screening run
func (a *App) handleCancel() {
	if a.cancelFunc != nil {
		a.cancelFunc()
		a.progressLabel.SetText("Canceling...")
	}
}

// showDetails opens the detail dialog of a row
func (a *App) showDetails(row view.Row) {
	detail, err := a.screener.Details(row.DetailsKey, row.Origin)
	if err != nil {
		a.showNotice(view.DetailNotice(err), true)
		return
	}

	meta := widget.NewLabel(fmt.Sprintf("%s · %s · %s", detail.Filename, detail.Origin.Label(), detail.ScoreText))
	skills := widget.NewLabel("Skills: " + strings.Join(detail.Skills, ", "))
	skills.Wrapping = fyne.TextWrapWord

	preview := widget.NewLabel(detail.Preview)
	preview.Wrapping = fyne.TextWrapWord
	if !detail.HasText {
		preview.Importance = widget.LowImportance
	}
	previewScroll := container.NewVScroll(preview)
	previewScroll.SetMinSize(fyne.NewSize(640, 360))

	content := container.NewVBox(meta, skills)
	for _, warning := range detail.Warnings {
		w := widget.NewLabel(warning)
		w.Importance = widget.WarningImportance
		content.Add(w)
	}
	content.Add(previewScroll)

	d := dialog.NewCustom(detail.Title, "Close", content, a.mainWindow)
	if row.CanDownload() && a.downloader != nil {
		d.SetButtons([]fyne.CanvasObject{
			widget.NewButton("Download", func() { a.handleDownload(row.Filename) }),
			widget.NewButton("Close", d.Hide),
		})
	}
	d.Show()
}

// handleDownload saves the original resume through the screening service
func (a *App) handleDownload(filename string) {
	save := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.mainWindow)
			return
		}
		if uc == nil {
			return
		}

		go func() {
			defer uc.Close()
			body, _, err := a.downloader.Download(context.Background(), filename)
			if err == nil {
				_, err = io.Copy(uc, body)
				body.Close()
			}
			fyne.Do(func() {
				if err != nil {
					dialog.ShowError(fmt.Errorf("failed to download %s: %w", filename, err), a.mainWindow)
					return
				}
				dialog.ShowInformation("Success", "Saved "+uc.URI().Name(), a.mainWindow)
			})
		}()
	}, a.mainWindow)
	save.SetFileName(filename)
	save.Show()
}

// handleExportCSV handles exporting results to CSV
func (a *App) handleExportCSV() {
	a.exportWith(export.CSVFilename, func(w io.Writer) error {
		return export.WriteCSV(w, a.screener.Session().Records())
	})
}

// handleExportXLSX handles exporting results to Excel
func (a *App) handleExportXLSX() {
	timestamp := time.Now().Format("2006-01-02_150405")
	summary, _ := a.screener.Session().Summary()
	a.exportWith(fmt.Sprintf("Resume_Screening_%s.xlsx", timestamp), func(w io.Writer) error {
		return export.WriteXLSX(w, a.screener.Session().Records(), summary)
	})
}

func (a *App) exportWith(defaultName string, write func(io.Writer) error) {
	if a.screener.Session().Len() == 0 {
		a.showNotice(view.NoticeNothingToExport, true)
		return
	}

	save := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.mainWindow)
			return
		}
		if uc == nil {
			return // User canceled
		}
		defer uc.Close()

		if err := write(uc); err != nil {
			if errors.Is(err, export.ErrNoResults) {
				a.showNotice(view.NoticeNothingToExport, true)
				return
			}
			dialog.ShowError(fmt.Errorf("failed to export: %w", err), a.mainWindow)
			return
		}

		dialog.ShowInformation("Success", "Results exported successfully to "+uc.URI().Name(), a.mainWindow)
	}, a.mainWindow)
	save.SetFileName(defaultName)
	save.Show()
}
