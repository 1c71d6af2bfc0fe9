package domain

// Employee is a directory entry from the employee master.
type Employee struct {
	EmpID      string
	Name       string
	Email      string
	Department string
	SubDept    string
	Location   string
	Active     bool
}
