package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-erp-api/internal/middleware"
	"github.com/noah-isme/college-erp-api/internal/models"
	"github.com/noah-isme/college-erp-api/internal/service"
)

// Handlers collects every portal handler the router mounts.
type Handlers struct {
	Auth          *service.AuthService
	Cookies       CookieConfig
	Admin         *AdminHandler
	Teacher       *TeacherHandler
	Attendance    *AttendanceHandler
	Marks         *MarksHandler
	Student       *StudentHandler
	Office        *OfficeHandler
	QuestionPaper *QuestionPaperHandler
	Metrics       *service.MetricsService
}

// RegisterRoutes mounts the four portals under the API prefix. Each portal
// group carries its own login endpoints and its own kind-bound guard.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers) {
	api := r.Group(prefix)

	r.GET("/metrics", gin.WrapH(h.Metrics.Handler()))

	admin := api.Group("/admin")
	{
		adminAuth := NewAuthHandler(h.Auth, models.KindAdmin, h.Cookies)
		admin.POST("/seed", h.Admin.Seed)
		admin.POST("/login", adminAuth.Login)
		admin.POST("/refresh", adminAuth.Refresh)

		// Catalog listings stay open; login pages need them to render
		// semester and subject pickers before a session exists.
		admin.GET("/semesters", h.Admin.ListSemesters)
		admin.GET("/subjects", h.Admin.ListSubjects)

		guarded := admin.Group("", middleware.Authenticate(h.Auth, models.KindAdmin))
		{
			guarded.POST("/logout", adminAuth.Logout)
			guarded.GET("/me", adminAuth.Me)
			guarded.POST("/change-password", adminAuth.ChangePassword)

			guarded.POST("/semesters", h.Admin.CreateSemester)
			guarded.GET("/semesters/:id", h.Admin.GetSemester)
			guarded.PUT("/semesters/:id", h.Admin.UpdateSemester)
			guarded.DELETE("/semesters/:id", h.Admin.DeleteSemester)
			guarded.POST("/semesters/:id/divisions", h.Admin.AddDivision)
			guarded.DELETE("/semesters/:id/divisions", h.Admin.RemoveDivision)

			guarded.POST("/subjects", h.Admin.CreateSubject)
			guarded.PUT("/subjects/:id", h.Admin.UpdateSubject)
			guarded.DELETE("/subjects/:id", h.Admin.DeleteSubject)

			guarded.POST("/teachers", h.Admin.CreateTeacher)
			guarded.GET("/teachers", h.Admin.ListTeachers)
			guarded.GET("/teachers/:id", h.Admin.GetTeacher)
			guarded.PUT("/teachers/:id", h.Admin.UpdateTeacher)
			guarded.DELETE("/teachers/:id", h.Admin.DeleteTeacher)
			guarded.GET("/teachers/:id/assignments", h.Admin.ListAssignments)
			guarded.POST("/teachers/:id/assignments", h.Admin.AssignSubject)
			guarded.DELETE("/teachers/:id/assignments/:assignmentId", h.Admin.RemoveAssignment)

			guarded.POST("/students", h.Admin.CreateStudent)
			guarded.GET("/students", h.Admin.ListStudents)
			guarded.GET("/students/:id", h.Admin.GetStudent)
			guarded.PUT("/students/:id", h.Admin.UpdateStudent)
			guarded.DELETE("/students/:id", h.Admin.DeleteStudent)

			guarded.POST("/staff", h.Admin.CreateStaff)
			guarded.GET("/staff", h.Admin.ListStaff)
		}
	}

	teacher := api.Group("/teacher")
	{
		teacherAuth := NewAuthHandler(h.Auth, models.KindTeacher, h.Cookies)
		teacher.POST("/login", teacherAuth.Login)
		teacher.POST("/refresh", teacherAuth.Refresh)

		guarded := teacher.Group("", middleware.Authenticate(h.Auth, models.KindTeacher))
		{
			guarded.POST("/logout", teacherAuth.Logout)
			guarded.GET("/me", teacherAuth.Me)
			guarded.POST("/change-password", teacherAuth.ChangePassword)

			guarded.GET("/profile", h.Teacher.Profile)
			guarded.PUT("/profile", h.Teacher.UpdateProfile)
			guarded.GET("/assignments", h.Teacher.Assignments)

			guarded.POST("/attendance", h.Attendance.Mark)
			guarded.GET("/attendance", h.Attendance.List)
			guarded.GET("/attendance/roster", h.Attendance.Roster)
			guarded.GET("/attendance/export", h.Attendance.ExportCSV)

			guarded.POST("/marks", h.Marks.Submit)
			guarded.GET("/marks", h.Marks.List)
			guarded.GET("/marks/class-average", h.Marks.ClassAverage)
			guarded.GET("/marks/:id", h.Marks.Get)
			guarded.PUT("/marks/:id", h.Marks.Update)
			guarded.DELETE("/marks/:id", h.Marks.Delete)

			guarded.POST("/question-papers/generate", h.QuestionPaper.Generate)
			guarded.POST("/question-papers/download", h.QuestionPaper.Download)
		}
	}

	student := api.Group("/student")
	{
		studentAuth := NewAuthHandler(h.Auth, models.KindStudent, h.Cookies)
		student.POST("/login", studentAuth.Login)
		student.POST("/refresh", studentAuth.Refresh)

		guarded := student.Group("", middleware.Authenticate(h.Auth, models.KindStudent))
		{
			guarded.POST("/logout", studentAuth.Logout)
			guarded.GET("/me", studentAuth.Me)
			guarded.POST("/change-password", studentAuth.ChangePassword)

			guarded.GET("/dashboard", h.Student.Dashboard)
			guarded.GET("/profile", h.Student.Profile)
			guarded.PUT("/profile", h.Student.UpdateProfile)
			guarded.GET("/subjects", h.Student.Subjects)
			guarded.GET("/attendance", h.Student.Attendance)
			guarded.GET("/internal-marks", h.Student.Marks)
		}
	}

	office := api.Group("/office")
	{
		officeAuth := NewAuthHandler(h.Auth, models.KindStaff, h.Cookies)
		office.POST("/login", officeAuth.Login)
		office.POST("/refresh", officeAuth.Refresh)

		guarded := office.Group("", middleware.Authenticate(h.Auth, models.KindStaff))
		{
			guarded.POST("/logout", officeAuth.Logout)
			guarded.GET("/me", officeAuth.Me)
			guarded.POST("/change-password", officeAuth.ChangePassword)

			guarded.POST("/students", h.Office.CreateStudent)
			guarded.GET("/students", h.Office.ListStudents)
			guarded.GET("/students/:id", h.Office.GetStudent)
			guarded.PUT("/students/:id", h.Office.UpdateStudent)

			guarded.GET("/semesters", h.Office.ListSemesters)
			guarded.GET("/subjects", h.Office.ListSubjects)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "route not found"}})
	})
}
