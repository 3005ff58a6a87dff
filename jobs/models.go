package jobs

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-jobportal"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Job is a posting owned by the employer whose email is PostedBy.
// PostedBy is set on create and never changes.
type Job struct {
	bun.BaseModel `bun:"table:jobs,alias:job"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Title         string     `bun:"title,notnull" json:"title"`
	Description   string     `bun:"description" json:"description"`
	Company       string     `bun:"company" json:"company"`
	Remote        bool       `bun:"remote,notnull,default:false" json:"remote"`
	Salary        float64    `bun:"salary,notnull,default:0" json:"salary"`
	PostedBy      string     `bun:"posted_by,notnull" json:"postedBy"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"createdAt,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updatedAt,omitempty"`
}

// Application records that an applicant applied to a job. There is at
// most one per (ApplicantID, JobID).
type Application struct {
	bun.BaseModel `bun:"table:applications,alias:app"`
	ID            uuid.UUID       `bun:"id,pk,type:uuid" json:"id"`
	ApplicantID   uuid.UUID       `bun:"applicant_id,notnull,type:uuid" json:"applicantId"`
	JobID         uuid.UUID       `bun:"job_id,notnull,type:uuid" json:"jobId"`
	CreatedAt     *time.Time      `bun:"created_at,nullzero,default:current_timestamp" json:"createdAt,omitempty"`
	Job           *Job            `bun:"rel:belongs-to,join:job_id=id" json:"-"`
	Applicant     *auth.Principal `bun:"rel:belongs-to,join:applicant_id=id" json:"-"`
}

// JobInput is the writable part of a job. Owner and id are never taken
// from the request body.
type JobInput struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Company     string  `json:"company"`
	Remote      bool    `json:"remote"`
	Salary      float64 `json:"salary"`
}

// Validate will validate the payload
func (in JobInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Company, validation.Length(0, 200)),
		validation.Field(&in.Salary, validation.Min(0.0)),
	)
}

func (in JobInput) apply(job *Job) {
	job.Title = strings.TrimSpace(in.Title)
	job.Description = in.Description
	job.Company = strings.TrimSpace(in.Company)
	job.Remote = in.Remote
	job.Salary = in.Salary
}

// ApplicationUserDto is the applicant's view of one of their applications.
type ApplicationUserDto struct {
	ApplicationID uuid.UUID `json:"applicationId"`
	JobID         uuid.UUID `json:"jobId"`
	JobTitle      string    `json:"jobTitle"`
	CompanyName   string    `json:"companyName"`
}

// ApplicationRecruiterDto is the employer's view of an application on
// one of their jobs.
type ApplicationRecruiterDto struct {
	ApplicationID  uuid.UUID `json:"applicationId"`
	JobID          uuid.UUID `json:"jobId"`
	JobTitle       string    `json:"jobTitle"`
	CompanyName    string    `json:"companyName"`
	ApplicantName  string    `json:"applicantName"`
	ApplicantEmail string    `json:"applicantEmail"`
}

func toUserDto(app *Application, job *Job) ApplicationUserDto {
	dto := ApplicationUserDto{ApplicationID: app.ID, JobID: app.JobID}
	if job != nil {
		dto.JobTitle = job.Title
		dto.CompanyName = job.Company
	}
	return dto
}

func toRecruiterDto(app *Application, job *Job) ApplicationRecruiterDto {
	user := toUserDto(app, job)
	dto := ApplicationRecruiterDto{
		ApplicationID: user.ApplicationID,
		JobID:         user.JobID,
		JobTitle:      user.JobTitle,
		CompanyName:   user.CompanyName,
	}
	if app.Applicant != nil {
		dto.ApplicantName = app.Applicant.Name
		dto.ApplicantEmail = app.Applicant.Email
	}
	return dto
}
