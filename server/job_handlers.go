package server

import (
	"net/http"

	"github.com/goliatone/go-jobportal"
	"github.com/goliatone/go-jobportal/jobs"
	"github.com/goliatone/go-jobportal/middleware/jwtware"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// jobID parses a path id. A malformed id cannot name an existing job, so
// it is reported as not found.
func jobID(ctx router.Context, param string) (uuid.UUID, error) {
	raw := ctx.Param(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, auth.WithDetails(jobs.ErrJobNotFound, err, map[string]any{"job": raw})
	}
	return id, nil
}

func (s *Server) listJobs(ctx router.Context) error {
	list, err := s.deps.Jobs.ListJobs(ctx.Context(), jwtware.CallerFrom(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, list)
}

func (s *Server) getJob(ctx router.Context) error {
	id, err := jobID(ctx, "id")
	if err != nil {
		return err
	}
	job, err := s.deps.Jobs.GetJob(ctx.Context(), jwtware.CallerFrom(ctx), id)
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, job)
}

func (s *Server) createJob(ctx router.Context) error {
	var in jobs.JobInput
	if err := ctx.Bind(&in); err != nil {
		return auth.ValidationError(err)
	}

	job, err := s.deps.Jobs.CreateJob(ctx.Context(), jwtware.CallerFrom(ctx), in)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, job)
}

func (s *Server) updateJob(ctx router.Context) error {
	id, err := jobID(ctx, "id")
	if err != nil {
		return err
	}

	var in jobs.JobInput
	if err := ctx.Bind(&in); err != nil {
		return auth.ValidationError(err)
	}

	job, err := s.deps.Jobs.UpdateJob(ctx.Context(), jwtware.CallerFrom(ctx), id, in)
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, job)
}

func (s *Server) deleteJob(ctx router.Context) error {
	id, err := jobID(ctx, "id")
	if err != nil {
		return err
	}
	if err := s.deps.Jobs.DeleteJob(ctx.Context(), jwtware.CallerFrom(ctx), id); err != nil {
		return err
	}
	return ctx.Status(http.StatusNoContent).SendString("")
}

func (s *Server) apply(ctx router.Context) error {
	id, err := jobID(ctx, "jobId")
	if err != nil {
		return err
	}
	app, err := s.deps.Jobs.Apply(ctx.Context(), jwtware.CallerFrom(ctx), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, app)
}

func (s *Server) myApplications(ctx router.Context) error {
	list, err := s.deps.Jobs.MyApplications(ctx.Context(), jwtware.CallerFrom(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, list)
}

func (s *Server) recruiterApplications(ctx router.Context) error {
	list, err := s.deps.Jobs.ApplicationsForPostedJobs(ctx.Context(), jwtware.CallerFrom(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, list)
}

func (s *Server) jobApplications(ctx router.Context) error {
	id, err := jobID(ctx, "jobId")
	if err != nil {
		return err
	}
	list, err := s.deps.Jobs.ApplicationsForJob(ctx.Context(), jwtware.CallerFrom(ctx), id)
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, list)
}
