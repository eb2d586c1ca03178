package http

import (
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/tifprobe/internal/core/domain"
	"github.com/samirrijal/tifprobe/internal/core/usecases"
)

// CreateScanHandler validates one raster file synchronously and returns its
// report. The body is a ValidateRequest; output_dir is set by the server.
func CreateScanHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req usecases.ValidateRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		path, err := resolvePath(deps.InputDir, req.Path)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		req.Path = path
		req.OutputDir = deps.OutputDir

		report, err := deps.Validation.Validate(c.UserContext(), req)
		if err != nil {
			return errFromDomain(c, err)
		}

		c.Location("/v1/scans/" + report.Run.ID)
		return c.Status(fiber.StatusCreated).JSON(report)
	}
}

// ListScansHandler returns scan runs, newest first.
func ListScansHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pg := pageFromQuery(c)
		runs, total, err := deps.Scans.List(c.UserContext(), pg.Limit, pg.Offset)
		if err != nil {
			return errFromDomain(c, err)
		}
		if runs == nil {
			runs = []domain.ScanRun{}
		}

		pg.Total = total
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: runs, Pagination: pg})
	}
}

// GetScanHandler returns one scan run.
func GetScanHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		run, err := deps.Scans.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(run)
	}
}

// ScanSamplesHandler returns the matched or validated samples of a run.
func ScanSamplesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		seq, err := domain.ParseSequence(c.Query("sequence"))
		if err != nil {
			return errFromDomain(c, err)
		}
		id := c.Params("id")
		if _, err := deps.Scans.GetByID(c.UserContext(), id); err != nil {
			return errFromDomain(c, err)
		}

		samples, err := deps.Scans.Samples(c.UserContext(), id, seq)
		if err != nil {
			return errFromDomain(c, err)
		}
		if samples == nil {
			samples = []domain.Sample{}
		}
		return c.JSON(fiber.Map{"sequence": seq, "samples": samples})
	}
}

// WorkflowsHandler lists the registered workflow keys.
func WorkflowsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"workflows": deps.Validation.Workflows()})
	}
}

// resolvePath confines p to root. Relative paths are taken from root; with no
// root configured any path is accepted. Existing files are also checked after
// resolving symlinks, so a link inside root cannot reach outside it.
func resolvePath(root, p string) (string, error) {
	if p == "" {
		return "", &domain.InvalidInputError{Field: "path", Reason: "must not be empty"}
	}
	if root == "" {
		return filepath.Clean(p), nil
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	full := p
	if !filepath.IsAbs(full) {
		full = filepath.Join(absRoot, full)
	}
	full = filepath.Clean(full)

	outside := &domain.InvalidInputError{Field: "path", Reason: "must be inside the input directory"}
	if !within(absRoot, full) {
		return "", outside
	}
	if real, err := filepath.EvalSymlinks(full); err == nil {
		realRoot, err := filepath.EvalSymlinks(absRoot)
		if err != nil {
			realRoot = absRoot
		}
		if !within(realRoot, real) {
			return "", outside
		}
	}
	return full, nil
}

// within reports whether the cleaned absolute path p lies under root.
func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
