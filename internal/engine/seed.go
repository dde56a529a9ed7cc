package engine

import (
	"context"
	"fmt"
	"math/rand"

	"staffdesk/internal/domain"
)

type seedDept struct {
	parent   string
	children []string
}

var seedDepts = []seedDept{
	{"Engineering", []string{"Platform", "Frontend", "QA"}},
	{"Operations", []string{"IT Support", "Facilities"}},
	{"Business", []string{"Sales", "Finance"}},
}

var seedFirstNames = []string{"Asha", "Ben", "Chitra", "Daniel", "Elena", "Farid", "Grace", "Hiro", "Ines", "Jonas", "Kavya", "Liam", "Mei", "Noah", "Priya", "Ravi", "Sofia", "Tomas", "Uma", "Viktor"}
var seedLastNames = []string{"Anand", "Becker", "Costa", "Dube", "Eriksen", "Fernandes", "Gupta", "Haddad", "Iyer", "Jensen", "Khan", "Lindqvist", "Mehta", "Novak", "Okafor", "Petrov", "Quint", "Rao", "Singh", "Tanaka"}
var seedLocations = []string{"Berlin", "Bengaluru", "Lisbon", "Toronto", "Singapore"}
var seedRoles = []string{"Engineer", "Senior Engineer", "Designer", "Analyst", "Manager"}
var seedSkills = []string{"go", "sql", "react", "terraform", "figma", "python", "kubernetes"}
var seedClients = []string{"Northwind", "Acme Corp", "Globex", "Initech", "Umbrella"}
var seedAllocations = []int{25, 50, 100}

// SeedResult summarizes what Seed created.
type SeedResult struct {
	Departments int `json:"departments"`
	Employees   int `json:"employees"`
	Projects    int `json:"projects"`
	Assignments int `json:"assignments"`
}

// Seed fills an empty workspace with demo data: a department tree,
// a staff directory and a handful of projects with 3 to 8 member
// teams. The rng seed is fixed so repeated runs on fresh workspaces
// produce the same dataset.
func (e Engine) Seed(ctx context.Context, employees, projects int) (SeedResult, error) {
	if e.Config == nil {
		return SeedResult{}, errConfigNotLoaded
	}
	if employees <= 0 {
		employees = 20
	}
	if projects <= 0 {
		projects = 5
	}
	rng := rand.New(rand.NewSource(42))
	var res SeedResult

	var childIDs []int
	for _, d := range seedDepts {
		parent, err := e.CreateDepartmentParent(ctx, d.parent, "")
		if err != nil {
			return res, fmt.Errorf("seed department %s: %w", d.parent, err)
		}
		res.Departments++
		for _, name := range d.children {
			child, err := e.CreateDepartmentChild(ctx, parent.DepartmentID, name, "")
			if err != nil {
				return res, fmt.Errorf("seed department %s/%s: %w", d.parent, name, err)
			}
			childIDs = append(childIDs, child.ChildDeptID)
			res.Departments++
		}
	}

	var empIDs []int
	for i := 0; i < employees; i++ {
		first := seedFirstNames[rng.Intn(len(seedFirstNames))]
		last := seedLastNames[rng.Intn(len(seedLastNames))]
		dept := childIDs[rng.Intn(len(childIDs))]
		skills := []string{seedSkills[rng.Intn(len(seedSkills))], seedSkills[rng.Intn(len(seedSkills))]}
		emp, err := e.CreateEmployee(ctx, EmployeeCreateOptions{
			Name:     first + " " + last,
			Email:    fmt.Sprintf("%s.%s.%d@example.com", first, last, i),
			DeptID:   &dept,
			Role:     seedRoles[rng.Intn(len(seedRoles))],
			Location: seedLocations[rng.Intn(len(seedLocations))],
			Skills:   skills,
		})
		if err != nil {
			return res, fmt.Errorf("seed employee %d: %w", i, err)
		}
		empIDs = append(empIDs, emp.EmployeeID)
		res.Employees++
	}

	for i := 0; i < projects; i++ {
		lead := empIDs[rng.Intn(len(empIDs))]
		p, err := e.CreateProject(ctx, ProjectCreateOptions{
			ProjectName: fmt.Sprintf("%s Rollout %d", seedClients[rng.Intn(len(seedClients))], i+1),
			ClientName:  seedClients[rng.Intn(len(seedClients))],
			LeadByEmpID: &lead,
			Overview: domain.ProjectOverview{
				Summary: "Seeded demo project",
			},
		})
		if err != nil {
			return res, fmt.Errorf("seed project %d: %w", i, err)
		}
		res.Projects++

		teamSize := 3 + rng.Intn(6)
		if teamSize > len(empIDs) {
			teamSize = len(empIDs)
		}
		picked := map[int]bool{}
		for len(picked) < teamSize {
			id := empIDs[rng.Intn(len(empIDs))]
			if picked[id] {
				continue
			}
			picked[id] = true
			_, err := e.CreateAssignment(ctx, AssignmentCreateOptions{
				ProjectID:     p.ProjectID,
				EmpID:         id,
				Role:          seedRoles[rng.Intn(len(seedRoles))],
				AllocationPct: seedAllocations[rng.Intn(len(seedAllocations))],
			})
			if err != nil {
				return res, fmt.Errorf("seed assignment: %w", err)
			}
			res.Assignments++
		}
	}
	return res, nil
}
