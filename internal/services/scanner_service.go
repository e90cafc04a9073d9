package services

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inktime/server/internal/models"
	"github.com/inktime/server/internal/observability"
	"github.com/inktime/server/internal/repository"
)

// ScanStatus represents the current status of the library scanner
type ScanStatus struct {
	Running          bool      `json:"running"`
	Enabled          bool      `json:"enabled"`
	LastRunID        string    `json:"lastRunId,omitempty"`
	LastRun          time.Time `json:"lastRun,omitempty"`
	LastRunDuration  string    `json:"lastRunDuration,omitempty"`
	FilesScanned     int       `json:"filesScanned"`
	PhotosAdded      int       `json:"photosAdded"`
	Skipped          int       `json:"skipped"`
	Errors           []string  `json:"errors,omitempty"`
	Progress         float64   `json:"progress"`
	NextScheduledRun time.Time `json:"nextScheduledRun,omitempty"`
}

// ScannerService walks the photo library on a schedule and registers
// any image files that are not yet in the database.
type ScannerService struct {
	photoRepo     repository.PhotoRepo
	exifService   *EXIFService
	libraryDir    string
	intervalHours int
	wsHub         *WebSocketHub

	mu       sync.RWMutex
	enabled  bool
	running  bool
	stopChan chan struct{}
	status   ScanStatus
	ticker   *time.Ticker
}

// NewScannerService creates a new ScannerService
func NewScannerService(
	photoRepo repository.PhotoRepo,
	exifService *EXIFService,
	libraryDir string,
	intervalHours int,
) *ScannerService {
	if intervalHours <= 0 {
		intervalHours = 24 // Default to 24 hours
	}

	return &ScannerService{
		photoRepo:     photoRepo,
		exifService:   exifService,
		libraryDir:    libraryDir,
		intervalHours: intervalHours,
		stopChan:      make(chan struct{}),
		enabled:       true,
		status: ScanStatus{
			Enabled: true,
			Errors:  []string{},
		},
	}
}

// SetWebSocketHub sets the WebSocket hub for real-time notifications
func (s *ScannerService) SetWebSocketHub(hub *WebSocketHub) {
	s.wsHub = hub
}

// notifyProgress sends scan progress update via WebSocket
func (s *ScannerService) notifyProgress() {
	if s.wsHub == nil {
		return
	}

	s.mu.RLock()
	payload := ScannerProgressPayload{
		Running:      s.status.Running,
		FilesScanned: s.status.FilesScanned,
		PhotosAdded:  s.status.PhotosAdded,
		Progress:     s.status.Progress,
	}
	s.mu.RUnlock()

	s.wsHub.BroadcastToTopic(TopicScanner, WSMessage{
		Type:    WSTypeScannerProgress,
		Payload: payload,
	})
}

// notifyScanComplete sends scan completion notification via WebSocket
func (s *ScannerService) notifyScanComplete() {
	if s.wsHub == nil {
		return
	}

	s.mu.RLock()
	payload := ScannerProgressPayload{
		Running:      false,
		FilesScanned: s.status.FilesScanned,
		PhotosAdded:  s.status.PhotosAdded,
		Progress:     100,
	}
	s.mu.RUnlock()

	s.wsHub.BroadcastToTopic(TopicScanner, WSMessage{
		Type:    WSTypeScannerComplete,
		Payload: payload,
	})
}

// Start begins the background scanning loop
func (s *ScannerService) Start() {
	s.mu.Lock()
	if s.ticker != nil {
		s.mu.Unlock()
		return // Already started
	}
	s.enabled = true
	s.status.Enabled = true
	s.stopChan = make(chan struct{})
	interval := time.Duration(s.intervalHours) * time.Hour
	s.ticker = time.NewTicker(interval)
	s.status.NextScheduledRun = time.Now().Add(interval)
	s.mu.Unlock()

	observability.Infof("Library scanner started (runs every %d hours)", s.intervalHours)

	// Run on schedule
	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.mu.Lock()
				s.status.NextScheduledRun = time.Now().Add(time.Duration(s.intervalHours) * time.Hour)
				s.mu.Unlock()
				s.runScan()
			case <-s.stopChan:
				s.mu.Lock()
				s.ticker.Stop()
				s.ticker = nil
				s.mu.Unlock()
				log.Println("Library scanner stopped")
				return
			}
		}
	}()
}

// Stop stops the scanner service
func (s *ScannerService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return // Already stopped
	}

	s.enabled = false
	s.status.Enabled = false
	close(s.stopChan)
}

// IsEnabled returns whether the scanner service is enabled
func (s *ScannerService) IsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// IsRunning returns whether a scan is currently in progress
func (s *ScannerService) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// GetStatus returns the current scanner status
func (s *ScannerService) GetStatus() ScanStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// RunNow triggers an immediate scan
func (s *ScannerService) RunNow() {
	go s.runScan()
}

// RunSync performs a scan on the calling goroutine. Used at startup so
// the library is populated before the server starts answering requests.
func (s *ScannerService) RunSync() {
	s.runScan()
}

// runScan performs the actual library scan
func (s *ScannerService) runScan() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		log.Println("Library scan already running, skipping")
		return
	}
	runID := uuid.New().String()
	s.running = true
	s.status.Running = true
	s.status.LastRunID = runID
	s.status.FilesScanned = 0
	s.status.PhotosAdded = 0
	s.status.Skipped = 0
	s.status.Progress = 0
	s.status.Errors = []string{}
	s.mu.Unlock()

	startTime := time.Now()
	ctx := context.Background()
	observability.WithField("scan_run_id", runID).Infof("Starting library scan in %s", s.libraryDir)

	// First pass: count total files
	totalFiles := 0
	filepath.Walk(s.libraryDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if s.isImageFile(info.Name()) {
			totalFiles++
		}
		return nil
	})

	// Second pass: register files
	filesScanned := 0
	photosAdded := 0
	skipped := 0
	var errors []string

	filepath.Walk(s.libraryDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			errors = append(errors, "Walk error: "+err.Error())
			return nil
		}

		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if !s.isImageFile(info.Name()) {
			return nil
		}

		relPath, err := filepath.Rel(s.libraryDir, path)
		if err != nil {
			errors = append(errors, "Path error for "+path+": "+err.Error())
			return nil
		}

		added, scanErr := s.registerFile(ctx, path, relPath)
		if scanErr != nil {
			errors = append(errors, "Scan error for "+relPath+": "+scanErr.Error())
		}
		if added {
			photosAdded++
		} else if scanErr == nil {
			skipped++
		}

		filesScanned++

		if totalFiles > 0 {
			s.mu.Lock()
			s.status.FilesScanned = filesScanned
			s.status.PhotosAdded = photosAdded
			s.status.Skipped = skipped
			s.status.Progress = float64(filesScanned) / float64(totalFiles) * 100
			s.mu.Unlock()

			// Send progress update every 10 files or on every new photo
			if filesScanned%10 == 0 || added {
				s.notifyProgress()
			}
		}

		return nil
	})

	duration := time.Since(startTime)

	s.mu.Lock()
	s.running = false
	s.status.Running = false
	s.status.LastRun = startTime
	s.status.LastRunDuration = duration.Round(time.Millisecond).String()
	s.status.FilesScanned = filesScanned
	s.status.PhotosAdded = photosAdded
	s.status.Skipped = skipped
	s.status.Progress = 100
	s.status.Errors = errors
	s.mu.Unlock()

	observability.WithField("scan_run_id", runID).Infof(
		"Library scan completed: %d files scanned, %d photos added, %d already known in %s",
		filesScanned, photosAdded, skipped, duration.Round(time.Millisecond))

	if len(errors) > 0 {
		observability.WithField("scan_run_id", runID).Warnf("Library scan encountered %d errors", len(errors))
	}

	s.notifyScanComplete()
}

// registerFile inserts a single library file if it is not yet known.
// Screenshots are excluded from the library entirely.
func (s *ScannerService) registerFile(ctx context.Context, fullPath, relPath string) (added bool, err error) {
	if isScreenshotPath(relPath) {
		return false, nil
	}

	slashPath := filepath.ToSlash(relPath)
	id := models.PhotoID(slashPath)

	existing, err := s.photoRepo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	photo, err := models.NewPhoto(slashPath, nil)
	if err != nil {
		return false, err
	}

	if s.exifService != nil {
		if f, openErr := os.Open(fullPath); openErr == nil {
			if data, exifErr := s.exifService.ExtractFromReader(f); exifErr == nil {
				photo.CapturedAt = data.CapturedAt
				photo.Latitude = data.Latitude
				photo.Longitude = data.Longitude
			}
			f.Close()
		}
	}

	if err := s.photoRepo.Insert(ctx, photo); err != nil {
		return false, err
	}
	return true, nil
}

// isImageFile checks if a filename has an image extension
func (s *ScannerService) isImageFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	imageExtensions := map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".gif":  true,
		".webp": true,
		".heic": true,
		".heif": true,
	}
	return imageExtensions[ext]
}

// isScreenshotPath reports whether any path component marks the file as
// a screenshot rather than a camera photo.
func isScreenshotPath(relPath string) bool {
	lower := strings.ToLower(filepath.ToSlash(relPath))
	for _, part := range strings.Split(lower, "/") {
		if strings.Contains(part, "screenshot") {
			return true
		}
	}
	return false
}
