package service

import (
	"time"

	"gorm.io/datatypes"

	"share-worker/backend/internal/dto"
	"share-worker/backend/internal/model"
	"share-worker/backend/internal/wage"
)

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func fmtTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := fmtTime(*t)
	return &s
}

func fmtClock(t datatypes.Time) string {
	return wage.FromDuration(time.Duration(t)).String()
}

func fmtDate(d datatypes.Date) string {
	return time.Time(d).Format("2006-01-02")
}

func toJobResponse(job *model.Job) *dto.JobResponse {
	resp := &dto.JobResponse{
		ID:                job.ID,
		FacilityID:        job.FacilityID,
		Title:             job.Title,
		Description:       job.Description,
		StartTime:         fmtClock(job.StartTime),
		EndTime:           fmtClock(job.EndTime),
		BreakMinutes:      job.BreakMinutes,
		HourlyRate:        job.HourlyRate,
		TransportationFee: job.TransportationFee,
		RequiresApproval:  job.RequiresApproval,
		CreatedAt:         fmtTime(job.CreatedAt),
	}
	for i := range job.Slots {
		resp.Slots = append(resp.Slots, *toWorkSlotResponse(&job.Slots[i]))
	}
	return resp
}

func toWorkSlotResponse(slot *model.WorkSlot) *dto.WorkSlotResponse {
	resp := &dto.WorkSlotResponse{
		ID:                slot.ID,
		JobID:             slot.JobID,
		FacilityID:        slot.FacilityID,
		WorkDate:          fmtDate(slot.WorkDate),
		StartTime:         fmtClock(slot.StartTime),
		EndTime:           fmtClock(slot.EndTime),
		StartsAt:          fmtTime(slot.StartsAt),
		EndsAt:            fmtTime(slot.EndsAt),
		BreakMinutes:      slot.BreakMinutes,
		HourlyRate:        slot.HourlyRate,
		TransportationFee: slot.TransportationFee,
		EstimatedWage:     wage.ComputeSpan(slot.StartsAt, slot.EndsAt, slot.BreakMinutes, slot.HourlyRate, slot.TransportationFee),
		RequiresApproval:  slot.RequiresApproval,
		RecruitmentCount:  slot.RecruitmentCount,
		AppliedCount:      slot.AppliedCount,
		MatchedCount:      slot.MatchedCount,
		RemainingSeats:    slot.RemainingSeats(),
		Deadline:          fmtTime(slot.Deadline),
		VisibleFrom:       fmtTime(slot.VisibleFrom),
		VisibleUntil:      fmtTimePtr(slot.VisibleUntil),
		Retired:           slot.IsRetired(),
	}
	if slot.Job != nil {
		resp.Title = slot.Job.Title
	}
	return resp
}

func toApplicationResponse(app *model.Application) *dto.ApplicationResponse {
	resp := &dto.ApplicationResponse{
		ID:               app.ID,
		WorkerID:         app.WorkerID,
		WorkSlotID:       app.WorkSlotID,
		Status:           string(app.Status),
		CancelledBy:      app.CancelledBy,
		CancelReason:     app.CancelReason,
		CancelledAt:      fmtTimePtr(app.CancelledAt),
		DecidedBy:        app.DecidedBy,
		DecidedAt:        fmtTimePtr(app.DecidedAt),
		MatchedAt:        fmtTimePtr(app.MatchedAt),
		WorkerReviewed:   app.WorkerReviewed,
		FacilityReviewed: app.FacilityReviewed,
		RatingByWorker:   app.RatingByWorker,
		RatingByFacility: app.RatingByFacility,
		CreatedAt:        fmtTime(app.CreatedAt),
		UpdatedAt:        fmtTime(app.UpdatedAt),
	}
	if app.WorkSlot != nil {
		resp.Slot = toWorkSlotResponse(app.WorkSlot)
	}
	return resp
}

func toAttendanceResponse(a *model.Attendance) *dto.AttendanceResponse {
	return &dto.AttendanceResponse{
		ID:                    a.ID,
		ApplicationID:         a.ApplicationID,
		WorkSlotID:            a.WorkSlotID,
		WorkerID:              a.WorkerID,
		FacilityID:            a.FacilityID,
		ScheduledStartAt:      fmtTime(a.ScheduledStartAt),
		ScheduledEndAt:        fmtTime(a.ScheduledEndAt),
		ScheduledBreakMinutes: a.ScheduledBreakMinutes,
		HourlyRate:            a.HourlyRate,
		TransportationFee:     a.TransportationFee,
		CheckInAt:             fmtTime(a.CheckInAt),
		CheckInMethod:         a.CheckInMethod,
		CheckOutAt:            fmtTimePtr(a.CheckOutAt),
		CheckOutMethod:        a.CheckOutMethod,
		EffectiveStartAt:      fmtTimePtr(a.EffectiveStartAt),
		EffectiveEndAt:        fmtTimePtr(a.EffectiveEndAt),
		EffectiveBreakMinutes: a.EffectiveBreakMinutes,
		WageAmount:            a.WageAmount,
		ModificationCount:     a.ModificationCount,
	}
}

func toModificationResponse(r *model.ModificationRequest) *dto.ModificationRequestResponse {
	resp := &dto.ModificationRequestResponse{
		ID:                    r.ID,
		AttendanceID:          r.AttendanceID,
		WorkerID:              r.WorkerID,
		FacilityID:            r.FacilityID,
		RequestedStartAt:      fmtTime(r.RequestedStartAt),
		RequestedEndAt:        fmtTime(r.RequestedEndAt),
		RequestedBreakMinutes: r.RequestedBreakMinutes,
		WorkerComment:         r.WorkerComment,
		OriginalAmount:        r.OriginalAmount,
		RequestedAmount:       r.RequestedAmount,
		WageDelta:             r.WageDelta(),
		Status:                string(r.Status),
		ReviewerComment:       r.ReviewerComment,
		ReviewedBy:            r.ReviewedBy,
		ReviewedAt:            fmtTimePtr(r.ReviewedAt),
		Revision:              r.Revision,
		CreatedAt:             fmtTime(r.CreatedAt),
	}
	for _, rev := range r.Revisions {
		resp.Revisions = append(resp.Revisions, dto.ModificationRevisionResponse{
			Revision:              rev.Revision,
			RequestedStartAt:      fmtTime(rev.RequestedStartAt),
			RequestedEndAt:        fmtTime(rev.RequestedEndAt),
			RequestedBreakMinutes: rev.RequestedBreakMinutes,
			WorkerComment:         rev.WorkerComment,
			OriginalAmount:        rev.OriginalAmount,
			RequestedAmount:       rev.RequestedAmount,
			Outcome:               string(rev.Outcome),
			ReviewerComment:       rev.ReviewerComment,
			ReviewedBy:            rev.ReviewedBy,
			ReviewedAt:            fmtTime(rev.CreatedAt),
		})
	}
	return resp
}
