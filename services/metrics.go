package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	issuesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civicconnect_issues_created_total",
			Help: "Issues created, by category",
		},
		[]string{"category"},
	)
	issueAssignments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civicconnect_issue_assignments_total",
			Help: "Assignment changes by organization and how they happened",
		},
		[]string{"organization", "source"},
	)
	roleResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civicconnect_role_resolutions_total",
			Help: "Role resolutions by resulting kind and whether the cache answered",
		},
		[]string{"kind", "cached"},
	)
)

const (
	assignAuto     = "auto"
	assignExplicit = "explicit"
	assignReassign = "reassign"
	assignCleared  = "cleared"
)
